package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"shoplist-go/internal/config"
	shoppingdomain "shoplist-go/internal/domain/shopping"
	"shoplist-go/internal/repository/inmemory"
	"shoplist-go/internal/transport/httpserver"
	"shoplist-go/internal/transport/httpserver/handler"
	commonhandler "shoplist-go/internal/transport/httpserver/handler/common"
	shoppinghandler "shoplist-go/internal/transport/httpserver/handler/shopping"
	"shoplist-go/pkg/logger"
)

func startServer(t *testing.T) (*httptest.Server, *shoppingdomain.Service) {
	t.Helper()
	log := logger.NewNop()
	service := shoppingdomain.NewService(inmemory.NewShoppingRepository(), nil)
	_, err := service.EnsureActiveList(context.Background())
	require.NoError(t, err)

	handlers := handler.New(commonhandler.New(nil, log), shoppinghandler.New(service, log))
	server := httptest.NewServer(httpserver.NewRouter(config.Config{}, handlers, nil))
	t.Cleanup(server.Close)
	return server, service
}

func run(t *testing.T, server string, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--server", server}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestAddAndList(t *testing.T) {
	server, _ := startServer(t)

	out, err := run(t, server.URL, "", "add", "oat", "milk", "--qty", "2", "--by", "Al")
	require.NoError(t, err)
	assert.Contains(t, out, "oat milk")

	out, err = run(t, server.URL, "", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "oat milk")
	assert.Contains(t, out, "general")
}

func TestAddRequiresBy(t *testing.T) {
	server, _ := startServer(t)

	_, err := run(t, server.URL, "", "add", "milk")
	assert.Error(t, err)
}

func TestBuyWithUndo(t *testing.T) {
	server, service := startServer(t)
	list, err := service.AddItem(context.Background(), shoppingdomain.NewItemInput{Name: "Coffee", AddedBy: "Al"})
	require.NoError(t, err)

	out, err := run(t, server.URL, "u\n", "buy", list.Items[0].ID, "--undo-window", "2s")
	require.NoError(t, err)
	assert.Contains(t, out, "restored")

	active, err := service.EnsureActiveList(context.Background())
	require.NoError(t, err)
	require.Len(t, active.Items, 1)
	assert.Equal(t, "Coffee", active.Items[0].Name)

	history, err := service.ListHistory(context.Background())
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestBuyWithoutUndo(t *testing.T) {
	server, service := startServer(t)
	list, err := service.AddItem(context.Background(), shoppingdomain.NewItemInput{Name: "Tea", AddedBy: "Al"})
	require.NoError(t, err)

	start := time.Now()
	out, err := run(t, server.URL, "", "buy", list.Items[0].ID, "--undo-window", "50ms")
	require.NoError(t, err)
	assert.NotContains(t, out, "restored")
	assert.Less(t, time.Since(start), 2*time.Second)

	active, err := service.EnsureActiveList(context.Background())
	require.NoError(t, err)
	assert.Empty(t, active.Items)
}

func TestArchiveAndHistory(t *testing.T) {
	server, _ := startServer(t)
	_, err := run(t, server.URL, "", "add", "bread", "--by", "Al")
	require.NoError(t, err)

	out, err := run(t, server.URL, "", "archive")
	require.NoError(t, err)
	assert.Contains(t, out, "archived 1 items")

	out, err = run(t, server.URL, "", "history")
	require.NoError(t, err)
	assert.Contains(t, out, "bread x1")

	_, err = run(t, server.URL, "", "archive")
	assert.Error(t, err)
}
