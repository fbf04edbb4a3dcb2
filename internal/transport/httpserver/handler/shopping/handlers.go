package shopping

import (
	shoppingdomain "shoplist-go/internal/domain/shopping"
	"shoplist-go/pkg/logger"
)

type Handlers struct {
	Shopping *shoppingdomain.Service
	log      logger.Logger
}

func New(shopping *shoppingdomain.Service, log logger.Logger) *Handlers {
	return &Handlers{
		Shopping: shopping,
		log:      log,
	}
}
