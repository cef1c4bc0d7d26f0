package server

import (
	"fmt"
	"strings"
	"sync"

	"github.com/AnhadSachdeva/Key-Value-Store/internal/resp"
	"github.com/AnhadSachdeva/Key-Value-Store/internal/storage"
	"go.uber.org/zap"
)

// Engine coordinates the execution of commands against the storage engine
type Engine struct {
	commands map[string]command // Registry of available commands (the key is the command name in uppercase)
	store    *storage.Store
	stopOnce sync.Once // Ensures that the stop happens only once
	logger   *zap.Logger
}

// NewEngine initializes the engine and registers the basic commands
func NewEngine(store *storage.Store, logger *zap.Logger) *Engine {
	engine := Engine{
		commands: make(map[string]command),
		store:    store,
		logger:   logger,
	}
	engine.registerBasicCommand()

	return &engine
}

// register adds a new command to the engine. The command name is uppercase
func (e *Engine) register(name string, cmd command) {
	e.commands[strings.ToUpper(name)] = cmd
}

// registerBasicCommand fills the registry with standard commands
func (e *Engine) registerBasicCommand() {
	e.register("PING", commandFunc(ping))
	e.register("SET", commandFunc(set))
	e.register("GET", commandFunc(get))
	e.register("DEL", commandFunc(del))
	e.register("EXISTS", commandFunc(exists))
	e.register("EXPIRE", commandFunc(expire))
	e.register("TTL", commandFunc(ttl))
	e.register("PTTL", commandFunc(pttl))
	e.register("PERSIST", commandFunc(persist))
	e.register("DBSIZE", commandFunc(dbsize))
	e.register("FLUSHDB", commandFunc(flushdb))
	e.register("COMMAND", commandFunc(cmd))

	e.register("ZADD", commandFunc(zadd))
	e.register("ZREM", commandFunc(zrem))
	e.register("ZSCORE", commandFunc(zscore))
	e.register("ZRANGE", commandFunc(zrange))
	e.register("ZRANGEBYSCORE", commandFunc(zrangebyscore))
	e.register("ZRANK", commandFunc(zrank))
	e.register("ZCARD", commandFunc(zcard))
}

// Execute finds the command by name and executes it with the passed arguments.
// If the command is not found, returns an error in the RESP format. The
// unknown-command wording matches Redis so client libraries that probe with
// HELLO fall back cleanly.
func (e *Engine) Execute(name string, args []resp.Value) resp.Value {
	if e.logger.Core().Enabled(zap.DebugLevel) {
		// Log the command name and number of args
		e.logger.Debug("executing command",
			zap.String("cmd", name),
			zap.Int("args_count", len(args)),
		)
	}

	cmd, ok := e.commands[name]
	if !ok {
		return resp.MakeError(fmt.Sprintf("ERR unknown command '%s'", strings.ToLower(name)))
	}

	ctx := &context{
		args:  args,
		store: e.store,
	}

	return cmd.execute(ctx)
}

// Shutdown shuts down the engine and the storage reaper correctly
func (e *Engine) Shutdown() {
	e.stopOnce.Do(func() {
		e.store.Close()
		e.logger.Info("expiry reaper stopped")
	})
}
