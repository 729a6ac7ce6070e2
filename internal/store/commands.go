package store

import (
	"strconv"
	"strings"

	"github.com/xgzlucario/veloxd/internal/wire"
	"github.com/xgzlucario/veloxd/internal/zset"
)

type handlerFunc func(db *DB, w *wire.Writer, args []string)

type command struct {
	name    string
	arity   int
	handler handlerFunc
}

// cmdTable lists every recognized command with its exact argument count
// (command name included), checked before dispatch.
var cmdTable = []command{
	{"get", 2, cmdGet},
	{"set", 3, cmdSet},
	{"del", 2, cmdDel},
	{"keys", 1, cmdKeys},
	{"zadd", 4, cmdZAdd},
	{"zrem", 3, cmdZRem},
	{"zrank", 3, cmdZRank},
	{"zquery", 6, cmdZQuery},
}

func lookupCommand(name string) *command {
	for i := range cmdTable {
		if strings.EqualFold(cmdTable[i].name, name) {
			return &cmdTable[i]
		}
	}
	return nil
}

// OnCommand, if set, is called after every successfully dispatched
// command with its name — wired to internal/metrics' per-command
// counter without store importing metrics directly.
var OnCommand func(name string)

// Dispatch runs one request — args[0] is the command name, the rest its
// arguments — against db, writing the tagged response through w.
func Dispatch(db *DB, w *wire.Writer, args []string) {
	if len(args) == 0 {
		w.WriteErr(wire.ErrUnknown, "empty request")
		return
	}
	cmd := lookupCommand(args[0])
	if cmd == nil || len(args) != cmd.arity {
		w.WriteErr(wire.ErrUnknown, "unknown command '"+args[0]+"'")
		Logger.Debug().Str("cmd", args[0]).Int("argc", len(args)).Msg("unknown command or bad arity")
		return
	}
	cmd.handler(db, w, args)
	if OnCommand != nil {
		OnCommand(cmd.name)
	}
}

func cmdGet(db *DB, w *wire.Writer, args []string) {
	e, ok := db.lookup(args[1])
	if !ok {
		w.WriteNil()
		return
	}
	if e.Type != TypeString {
		w.WriteErr(wire.ErrBadArg, "value is not a string")
		return
	}
	w.WriteStr(e.Str)
}

func cmdSet(db *DB, w *wire.Writer, args []string) {
	key, val := args[1], args[2]
	e, ok := db.lookup(key)
	if !ok {
		db.insert(&Entry{Key: key, Type: TypeString, Str: val})
		w.WriteNil()
		return
	}
	if e.Type != TypeString {
		w.WriteErr(wire.ErrBadArg, "value is not a string")
		return
	}
	prev := e.Str
	e.Str = val
	w.WriteStr(prev)
}

// cmdDel removes a STRING entry and returns its previous value, or NIL
// if the key was absent — a single STR-then-NIL response, never both.
func cmdDel(db *DB, w *wire.Writer, args []string) {
	key := args[1]
	e, ok := db.lookup(key)
	if !ok {
		w.WriteNil()
		return
	}
	if e.Type != TypeString {
		w.WriteErr(wire.ErrBadArg, "value is not a string")
		return
	}
	db.delete(key)
	w.WriteStr(e.Str)
}

func cmdKeys(db *DB, w *wire.Writer, _ []string) {
	pos := w.StartArray()
	n := 0
	db.forEach(func(e *Entry) bool {
		w.WriteStr(e.Key)
		n++
		return true
	})
	w.EndArray(pos, n)
}

func cmdZAdd(db *DB, w *wire.Writer, args []string) {
	key, scoreArg, name := args[1], args[2], args[3]
	score, err := strconv.ParseFloat(scoreArg, 64)
	if err != nil {
		w.WriteErr(wire.ErrBadArg, "invalid score")
		return
	}

	e, ok := db.lookup(key)
	if !ok {
		e = &Entry{Key: key, Type: TypeZSet, ZSet: zset.New()}
		db.insert(e)
	} else if e.Type != TypeZSet {
		w.WriteErr(wire.ErrBadArg, "value is not a zset")
		return
	}

	if e.ZSet.Insert(name, score) {
		w.WriteStr("added new entry")
	} else {
		w.WriteStr("entry updated")
	}
}

// cmdZRem deletes a member. Its success/failure integers are inverted
// from the usual convention: 0 means deleted, 1 means the member did not
// exist. A missing key or a non-zset value answers BAD_ARG.
func cmdZRem(db *DB, w *wire.Writer, args []string) {
	key, name := args[1], args[2]
	e, ok := db.lookup(key)
	if !ok || e.Type != TypeZSet {
		w.WriteErr(wire.ErrBadArg, "value is not a zset")
		return
	}
	znode, found := e.ZSet.Lookup(name)
	if !found {
		w.WriteInt(1)
		return
	}
	e.ZSet.Delete(znode)
	w.WriteInt(0)
}

func cmdZRank(db *DB, w *wire.Writer, args []string) {
	key, name := args[1], args[2]
	e, ok := db.lookup(key)
	if !ok || e.Type != TypeZSet {
		w.WriteErr(wire.ErrBadArg, "value is not a zset")
		return
	}
	znode, found := e.ZSet.Lookup(name)
	if !found {
		w.WriteNil()
		return
	}
	w.WriteInt(int64(e.ZSet.Rank(znode)))
}

func cmdZQuery(db *DB, w *wire.Writer, args []string) {
	key, scoreArg, name, offsetArg, limitArg := args[1], args[2], args[3], args[4], args[5]

	score, err := strconv.ParseFloat(scoreArg, 64)
	if err != nil {
		w.WriteErr(wire.ErrBadArg, "invalid score")
		return
	}
	offset, err := strconv.ParseInt(offsetArg, 10, 64)
	if err != nil {
		w.WriteErr(wire.ErrBadArg, "invalid offset")
		return
	}
	limit, err := strconv.ParseInt(limitArg, 10, 64)
	if err != nil || limit <= 0 {
		w.WriteErr(wire.ErrBadArg, "limit must be positive")
		return
	}

	e, ok := db.lookup(key)
	if !ok || e.Type != TypeZSet {
		w.WriteErr(wire.ErrBadArg, "value is not a zset")
		return
	}

	node := e.ZSet.SeekGE(score, name)
	if node != nil && offset != 0 {
		node = e.ZSet.OffsetFrom(node, offset)
	}
	if node == nil {
		w.WriteErr(wire.ErrNotFound, "seek past end of zset")
		return
	}

	pos := w.StartArray()
	n := int64(0)
	for n < limit && node != nil {
		w.WriteStr(node.Name)
		w.WriteDbl(node.Score)
		n++
		node = e.ZSet.OffsetFrom(node, 1)
	}
	w.EndArray(pos, int(n)*2)
}
