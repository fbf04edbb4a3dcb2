package handler

import (
	commonhandler "shoplist-go/internal/transport/httpserver/handler/common"
	shoppinghandler "shoplist-go/internal/transport/httpserver/handler/shopping"
)

type Handlers struct {
	Common   *commonhandler.Handlers
	Shopping *shoppinghandler.Handlers
}

func New(common *commonhandler.Handlers, shopping *shoppinghandler.Handlers) *Handlers {
	return &Handlers{
		Common:   common,
		Shopping: shopping,
	}
}
