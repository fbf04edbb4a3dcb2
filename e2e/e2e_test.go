//go:build e2e
// +build e2e

package e2e_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
	"shoplist-go/internal/config"
	"shoplist-go/internal/db"
	shoppingdomain "shoplist-go/internal/domain/shopping"
	mongoshopping "shoplist-go/internal/repository/mongo/shopping"
	postgresshopping "shoplist-go/internal/repository/postgres/shopping"
	"shoplist-go/internal/transport/httpserver"
	"shoplist-go/internal/transport/httpserver/handler"
	commonhandler "shoplist-go/internal/transport/httpserver/handler/common"
	shoppinghandler "shoplist-go/internal/transport/httpserver/handler/shopping"
	"shoplist-go/pkg/logger"
)

type testEnv struct {
	server *httptest.Server
	repo   shoppingdomain.Repository
	close  func()
}

type storeFactory struct {
	name string
	open func(t *testing.T) (shoppingdomain.Repository, func())
}

func stores() []storeFactory {
	return []storeFactory{
		{name: "postgres", open: openPostgres},
		{name: "mongo", open: openMongo},
	}
}

func openPostgres(t *testing.T) (shoppingdomain.Repository, func()) {
	t.Helper()

	dsn := os.Getenv("E2E_DB_DSN")
	if dsn == "" {
		t.Skip("E2E_DB_DSN not set; skipping postgres e2e tests")
	}

	log := logger.NewNop()
	dbConn, err := db.NewPostgres(config.DBConfig{DSN: dsn}, log)
	if err != nil {
		t.Fatalf("db connect: %v", err)
	}
	if _, err := db.Migrate(dbConn, log); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := cleanPostgres(dbConn); err != nil {
		t.Fatalf("clean db: %v", err)
	}

	return postgresshopping.NewPostgres(dbConn), func() {
		sqlDB, err := dbConn.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	}
}

func openMongo(t *testing.T) (shoppingdomain.Repository, func()) {
	t.Helper()

	uri := os.Getenv("E2E_MONGO_URI")
	if uri == "" {
		t.Skip("E2E_MONGO_URI not set; skipping mongo e2e tests")
	}

	ctx := context.Background()
	client, database, err := db.NewMongo(ctx, config.MongoConfig{URI: uri, Database: "shoplist_e2e"}, logger.NewNop())
	if err != nil {
		t.Fatalf("mongo connect: %v", err)
	}
	if err := cleanMongo(ctx, database); err != nil {
		t.Fatalf("clean mongo: %v", err)
	}

	repo := mongoshopping.NewMongo(database)
	if err := repo.EnsureIndexes(ctx); err != nil {
		t.Fatalf("mongo indexes: %v", err)
	}
	return repo, func() { _ = client.Disconnect(context.Background()) }
}

func setupE2E(t *testing.T, factory storeFactory) *testEnv {
	t.Helper()

	repo, closeStore := factory.open(t)

	log := logger.NewNop()
	service := shoppingdomain.NewService(repo, shoppingdomain.NewArchiveGuard(5*time.Second, 10*time.Second))
	if _, err := service.EnsureActiveList(context.Background()); err != nil {
		t.Fatalf("ensure active list: %v", err)
	}

	handlers := handler.New(commonhandler.New(nil, log), shoppinghandler.New(service, log))
	router := httpserver.NewRouter(config.Config{}, handlers, nil)
	server := httptest.NewServer(router)

	return &testEnv{
		server: server,
		repo:   repo,
		close: func() {
			server.Close()
			closeStore()
		},
	}
}

func cleanPostgres(dbConn *gorm.DB) error {
	return dbConn.WithContext(context.Background()).Exec(
		"TRUNCATE TABLE history_entries, active_lists",
	).Error
}

func cleanMongo(ctx context.Context, database *mongo.Database) error {
	for _, name := range []string{"active_lists", "history_entries"} {
		if err := database.Collection(name).Drop(ctx); err != nil {
			return err
		}
	}
	return nil
}

func requestJSON(t *testing.T, method, url string, payload interface{}) (*http.Response, []byte) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}

	return resp, respBody
}

func decode(t *testing.T, body []byte, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(body, dst); err != nil {
		t.Fatalf("decode %s: %v", string(body), err)
	}
}

func expectStatus(t *testing.T, resp *http.Response, body []byte, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("status = %d, want %d, body: %s", resp.StatusCode, want, string(body))
	}
}

func TestE2EPurchaseArchivesItem(t *testing.T) {
	for _, factory := range stores() {
		t.Run(factory.name, func(t *testing.T) {
			env := setupE2E(t, factory)
			defer env.close()

			resp, body := requestJSON(t, http.MethodPost, env.server.URL+"/list/active/items", map[string]interface{}{
				"name": "Milk", "quantity": 2, "category": "Dairy", "addedBy": "Al",
			})
			expectStatus(t, resp, body, http.StatusCreated)

			var list shoppingdomain.ActiveList
			decode(t, body, &list)
			if len(list.Items) != 1 || list.Items[0].Name != "Milk" {
				t.Fatalf("unexpected list after add: %+v", list.Items)
			}

			resp, body = requestJSON(t, http.MethodPatch, env.server.URL+"/list/active/items/"+list.Items[0].ID,
				map[string]interface{}{"purchased": true})
			expectStatus(t, resp, body, http.StatusOK)
			decode(t, body, &list)
			if len(list.Items) != 0 {
				t.Fatalf("item still active after purchase: %+v", list.Items)
			}

			resp, body = requestJSON(t, http.MethodGet, env.server.URL+"/list/history", nil)
			expectStatus(t, resp, body, http.StatusOK)
			var history []shoppingdomain.HistoryEntry
			decode(t, body, &history)
			if len(history) != 1 || len(history[0].Items) != 1 {
				t.Fatalf("unexpected history: %+v", history)
			}
			if got := history[0].Items[0]; got.Name != "Milk" || got.Quantity != 2 || !got.Purchased {
				t.Fatalf("unexpected archived item: %+v", got)
			}
		})
	}
}

func TestE2EArchiveWholeList(t *testing.T) {
	for _, factory := range stores() {
		t.Run(factory.name, func(t *testing.T) {
			env := setupE2E(t, factory)
			defer env.close()

			for _, name := range []string{"bread", "eggs", "butter"} {
				resp, body := requestJSON(t, http.MethodPost, env.server.URL+"/list/active/items",
					map[string]interface{}{"name": name, "addedBy": "Al"})
				expectStatus(t, resp, body, http.StatusCreated)
			}

			resp, body := requestJSON(t, http.MethodPost, env.server.URL+"/list/archive", nil)
			expectStatus(t, resp, body, http.StatusOK)

			resp, body = requestJSON(t, http.MethodGet, env.server.URL+"/list/active", nil)
			expectStatus(t, resp, body, http.StatusOK)
			var list shoppingdomain.ActiveList
			decode(t, body, &list)
			if len(list.Items) != 0 {
				t.Fatalf("active list not empty after archive: %+v", list.Items)
			}

			resp, body = requestJSON(t, http.MethodGet, env.server.URL+"/list/history", nil)
			expectStatus(t, resp, body, http.StatusOK)
			var history []shoppingdomain.HistoryEntry
			decode(t, body, &history)
			if len(history) != 1 || len(history[0].Items) != 3 {
				t.Fatalf("unexpected history: %+v", history)
			}

			resp, body = requestJSON(t, http.MethodPost, env.server.URL+"/list/archive", nil)
			expectStatus(t, resp, body, http.StatusBadRequest)
		})
	}
}

func TestE2EHistoryOrderingAndDeletion(t *testing.T) {
	for _, factory := range stores() {
		t.Run(factory.name, func(t *testing.T) {
			env := setupE2E(t, factory)
			defer env.close()
			ctx := context.Background()

			base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
			for i, id := range []string{
				"5b0c4d1e-0000-4000-8000-000000000001",
				"5b0c4d1e-0000-4000-8000-000000000002",
			} {
				entry := &shoppingdomain.HistoryEntry{
					ID:          id,
					Items:       []shoppingdomain.Item{{ID: "item-" + id, Name: "x", Quantity: 1, Category: "general"}},
					CompletedAt: base.Add(time.Duration(i) * time.Hour),
					CreatedAt:   base,
				}
				if err := env.repo.CreateHistoryEntry(ctx, entry); err != nil {
					t.Fatalf("create history: %v", err)
				}
			}

			history, err := env.repo.ListHistory(ctx)
			if err != nil {
				t.Fatalf("list history: %v", err)
			}
			if len(history) != 2 || history[0].ID != "5b0c4d1e-0000-4000-8000-000000000002" {
				t.Fatalf("history not ordered newest first: %+v", history)
			}

			resp, body := requestJSON(t, http.MethodDelete, env.server.URL+"/list/history/not-a-uuid", nil)
			expectStatus(t, resp, body, http.StatusNotFound)

			resp, body = requestJSON(t, http.MethodDelete, env.server.URL+"/list/history/"+history[0].ID, nil)
			expectStatus(t, resp, body, http.StatusOK)
			decode(t, body, &history)
			if len(history) != 1 {
				t.Fatalf("unexpected history after delete: %+v", history)
			}

			resp, body = requestJSON(t, http.MethodDelete, env.server.URL+"/list/history", nil)
			expectStatus(t, resp, body, http.StatusOK)
		})
	}
}

func TestE2EVersionConflict(t *testing.T) {
	for _, factory := range stores() {
		t.Run(factory.name, func(t *testing.T) {
			env := setupE2E(t, factory)
			defer env.close()
			ctx := context.Background()

			first, err := env.repo.GetActiveList(ctx)
			if err != nil {
				t.Fatalf("get list: %v", err)
			}
			second, err := env.repo.GetActiveList(ctx)
			if err != nil {
				t.Fatalf("get list: %v", err)
			}

			first.Items = append(first.Items, shoppingdomain.Item{ID: "a", Name: "a", Quantity: 1, Category: "general"})
			if err := env.repo.SaveActiveList(ctx, first); err != nil {
				t.Fatalf("first save: %v", err)
			}

			second.Items = append(second.Items, shoppingdomain.Item{ID: "b", Name: "b", Quantity: 1, Category: "general"})
			err = env.repo.SaveActiveList(ctx, second)
			if !errors.Is(err, shoppingdomain.ErrVersionConflict) {
				t.Fatalf("second save err = %v, want ErrVersionConflict", err)
			}
		})
	}
}
