package server

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/AnhadSachdeva/Key-Value-Store/internal/resp"
	"github.com/AnhadSachdeva/Key-Value-Store/internal/storage"
)

// argString extracts the textual form of a bulk-string argument
func argString(v resp.Value) string {
	return string(v.String)
}

// formatScore renders a score the way Redis does: no exponent, no trailing
// zeros, "1" for 1.0
func formatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', -1, 64)
}

func storageError(err error) resp.Value {
	if errors.Is(err, storage.ErrWrongType) {
		return resp.MakeError(storage.ErrWrongType.Error())
	}
	return resp.MakeError("ERR " + err.Error())
}

func ping(ctx *context) resp.Value {
	switch len(ctx.args) {
	case 0:
		return resp.MakeSimpleString("PONG")
	case 1:
		return resp.MakeBulkString(argString(ctx.args[0]))
	}
	return resp.MakeErrorWrongNumberOfArguments("ping")
}

func set(ctx *context) resp.Value {
	if len(ctx.args) < 2 {
		return resp.MakeErrorWrongNumberOfArguments("set")
	}

	key := argString(ctx.args[0])
	value := argString(ctx.args[1])

	switch len(ctx.args) {
	case 2:
		ctx.store.Set(key, value)
		return resp.MakeSimpleString("OK")

	case 3:
		if !strings.EqualFold(argString(ctx.args[2]), "NX") {
			return resp.MakeError("ERR syntax error")
		}
		if !ctx.store.SetIfAbsent(key, value) {
			return resp.MakeNilBulkString()
		}
		return resp.MakeSimpleString("OK")

	case 4:
		if !strings.EqualFold(argString(ctx.args[2]), "EX") {
			return resp.MakeError("ERR syntax error")
		}
		seconds, err := strconv.ParseInt(argString(ctx.args[3]), 10, 64)
		if err != nil || seconds <= 0 {
			return resp.MakeError("ERR invalid expire time in 'set' command")
		}
		ctx.store.SetWithTTL(key, value, time.Duration(seconds)*time.Second)
		return resp.MakeSimpleString("OK")
	}

	return resp.MakeError("ERR syntax error")
}

func get(ctx *context) resp.Value {
	if len(ctx.args) != 1 {
		return resp.MakeErrorWrongNumberOfArguments("get")
	}

	value, ok, err := ctx.store.Get(argString(ctx.args[0]))
	if err != nil {
		return storageError(err)
	}
	if !ok {
		return resp.MakeNilBulkString()
	}
	return resp.MakeBulkString(value)
}

func del(ctx *context) resp.Value {
	if len(ctx.args) < 1 {
		return resp.MakeErrorWrongNumberOfArguments("del")
	}

	deleted := int64(0)
	for _, arg := range ctx.args {
		if ctx.store.Delete(argString(arg)) {
			deleted++
		}
	}
	return resp.MakeInteger(deleted)
}

func exists(ctx *context) resp.Value {
	if len(ctx.args) < 1 {
		return resp.MakeErrorWrongNumberOfArguments("exists")
	}

	count := int64(0)
	for _, arg := range ctx.args {
		if ctx.store.Exists(argString(arg)) {
			count++
		}
	}
	return resp.MakeInteger(count)
}

func expire(ctx *context) resp.Value {
	if len(ctx.args) != 2 {
		return resp.MakeErrorWrongNumberOfArguments("expire")
	}

	seconds, err := strconv.ParseInt(argString(ctx.args[1]), 10, 64)
	if err != nil || seconds < 0 {
		return resp.MakeError("ERR invalid expire time in 'expire' command")
	}

	if ctx.store.Expire(argString(ctx.args[0]), time.Duration(seconds)*time.Second) {
		return resp.MakeInteger(1)
	}
	return resp.MakeInteger(0)
}

func ttl(ctx *context) resp.Value {
	if len(ctx.args) != 1 {
		return resp.MakeErrorWrongNumberOfArguments("ttl")
	}

	remaining, status := ctx.store.TTL(argString(ctx.args[0]))
	if status != storage.ExpActive {
		return resp.MakeInteger(int64(status))
	}
	// whole seconds, rounded down, floored at zero
	return resp.MakeInteger(int64(remaining / time.Second))
}

func pttl(ctx *context) resp.Value {
	if len(ctx.args) != 1 {
		return resp.MakeErrorWrongNumberOfArguments("pttl")
	}

	remaining, status := ctx.store.TTL(argString(ctx.args[0]))
	if status != storage.ExpActive {
		return resp.MakeInteger(int64(status))
	}
	return resp.MakeInteger(remaining.Milliseconds())
}

func persist(ctx *context) resp.Value {
	if len(ctx.args) != 1 {
		return resp.MakeErrorWrongNumberOfArguments("persist")
	}

	if ctx.store.Persist(argString(ctx.args[0])) {
		return resp.MakeInteger(1)
	}
	return resp.MakeInteger(0)
}

func dbsize(ctx *context) resp.Value {
	if len(ctx.args) != 0 {
		return resp.MakeErrorWrongNumberOfArguments("dbsize")
	}
	return resp.MakeInteger(int64(ctx.store.DBSize()))
}

func flushdb(ctx *context) resp.Value {
	if len(ctx.args) != 0 {
		return resp.MakeErrorWrongNumberOfArguments("flushdb")
	}
	ctx.store.Flush()
	return resp.MakeSimpleString("OK")
}

func zadd(ctx *context) resp.Value {
	if len(ctx.args) < 3 || (len(ctx.args)-1)%2 != 0 {
		return resp.MakeErrorWrongNumberOfArguments("zadd")
	}

	key := argString(ctx.args[0])
	added := int64(0)

	for i := 1; i < len(ctx.args); i += 2 {
		score, err := strconv.ParseFloat(argString(ctx.args[i]), 64)
		if err != nil {
			return resp.MakeError("ERR value is not a valid float")
		}

		changed, err := ctx.store.ZAdd(key, argString(ctx.args[i+1]), score)
		if err != nil {
			return storageError(err)
		}
		if changed {
			added++
		}
	}

	return resp.MakeInteger(added)
}

func zrem(ctx *context) resp.Value {
	if len(ctx.args) < 2 {
		return resp.MakeErrorWrongNumberOfArguments("zrem")
	}

	key := argString(ctx.args[0])
	removed := int64(0)

	for _, arg := range ctx.args[1:] {
		ok, err := ctx.store.ZRem(key, argString(arg))
		if err != nil {
			return storageError(err)
		}
		if ok {
			removed++
		}
	}

	return resp.MakeInteger(removed)
}

func zscore(ctx *context) resp.Value {
	if len(ctx.args) != 2 {
		return resp.MakeErrorWrongNumberOfArguments("zscore")
	}

	score, ok, err := ctx.store.ZScore(argString(ctx.args[0]), argString(ctx.args[1]))
	if err != nil {
		return storageError(err)
	}
	if !ok {
		return resp.MakeNilBulkString()
	}
	return resp.MakeBulkString(formatScore(score))
}

func zrank(ctx *context) resp.Value {
	if len(ctx.args) != 2 {
		return resp.MakeErrorWrongNumberOfArguments("zrank")
	}

	rank, ok, err := ctx.store.ZRank(argString(ctx.args[0]), argString(ctx.args[1]))
	if err != nil {
		return storageError(err)
	}
	if !ok {
		return resp.MakeNilBulkString()
	}
	return resp.MakeInteger(int64(rank))
}

func zcard(ctx *context) resp.Value {
	if len(ctx.args) != 1 {
		return resp.MakeErrorWrongNumberOfArguments("zcard")
	}

	card, err := ctx.store.ZCard(argString(ctx.args[0]))
	if err != nil {
		return storageError(err)
	}
	return resp.MakeInteger(int64(card))
}

func zrange(ctx *context) resp.Value {
	if len(ctx.args) != 3 && len(ctx.args) != 4 {
		return resp.MakeErrorWrongNumberOfArguments("zrange")
	}

	key := argString(ctx.args[0])

	start, err1 := strconv.Atoi(argString(ctx.args[1]))
	stop, err2 := strconv.Atoi(argString(ctx.args[2]))
	if err1 != nil || err2 != nil {
		return resp.MakeError("ERR value is not an integer or out of range")
	}

	withScores, ok := parseWithScores(ctx.args, 3)
	if !ok {
		return resp.MakeError("ERR syntax error")
	}

	card, err := ctx.store.ZCard(key)
	if err != nil {
		return storageError(err)
	}

	// resolve negative ranks against the current cardinality
	if start < 0 {
		start = card + start
		if start < 0 {
			start = 0
		}
	}
	if stop < 0 {
		stop = card + stop
	}

	members, err := ctx.store.ZRange(key, start, stop)
	if err != nil {
		return storageError(err)
	}
	return makeMemberArray(members, withScores)
}

func zrangebyscore(ctx *context) resp.Value {
	if len(ctx.args) != 3 && len(ctx.args) != 4 {
		return resp.MakeErrorWrongNumberOfArguments("zrangebyscore")
	}

	minScore, err1 := strconv.ParseFloat(argString(ctx.args[1]), 64)
	maxScore, err2 := strconv.ParseFloat(argString(ctx.args[2]), 64)
	if err1 != nil || err2 != nil {
		return resp.MakeError("ERR min or max is not a float")
	}

	withScores, ok := parseWithScores(ctx.args, 3)
	if !ok {
		return resp.MakeError("ERR syntax error")
	}

	members, err := ctx.store.ZRangeByScore(argString(ctx.args[0]), minScore, maxScore)
	if err != nil {
		return storageError(err)
	}
	return makeMemberArray(members, withScores)
}

// parseWithScores validates the optional trailing WITHSCORES token.
// The second result is false on an unrecognized token.
func parseWithScores(args []resp.Value, idx int) (bool, bool) {
	if len(args) <= idx {
		return false, true
	}
	if strings.EqualFold(argString(args[idx]), "WITHSCORES") {
		return true, true
	}
	return false, false
}

func makeMemberArray(members []storage.ScoredMember, withScores bool) resp.Value {
	size := len(members)
	if withScores {
		size *= 2
	}

	values := make([]resp.Value, 0, size)
	for _, m := range members {
		values = append(values, resp.MakeBulkString(m.Member))
		if withScores {
			values = append(values, resp.MakeBulkString(formatScore(m.Score)))
		}
	}
	return resp.MakeArray(values)
}
