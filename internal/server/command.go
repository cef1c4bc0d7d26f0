package server

import (
	"github.com/AnhadSachdeva/Key-Value-Store/internal/resp"
	"github.com/AnhadSachdeva/Key-Value-Store/internal/storage"
)

type context struct {
	args  []resp.Value
	store *storage.Store
}

type command interface {
	execute(ctx *context) resp.Value
}

type commandFunc func(ctx *context) resp.Value

func (c commandFunc) execute(ctx *context) resp.Value {
	return c(ctx)
}
