package store

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xgzlucario/veloxd/internal/wire"
)

func run(db *DB, args ...string) wire.Value {
	var w wire.Writer
	Dispatch(db, &w, args)
	v, _, err := wire.DecodeValue(w.Bytes())
	if err != nil {
		panic(err)
	}
	return v
}

func TestGetSetDelScenario(t *testing.T) {
	ast := assert.New(t)
	db := NewDB()

	ast.Equal(wire.TagNil, run(db, "set", "foo", "bar").Tag)

	v := run(db, "get", "foo")
	ast.Equal(wire.TagStr, v.Tag)
	ast.Equal("bar", v.Str)

	v = run(db, "set", "foo", "baz")
	ast.Equal(wire.TagStr, v.Tag)
	ast.Equal("bar", v.Str)

	v = run(db, "get", "foo")
	ast.Equal("baz", v.Str)

	v = run(db, "del", "foo")
	ast.Equal(wire.TagStr, v.Tag)
	ast.Equal("baz", v.Str)

	ast.Equal(wire.TagNil, run(db, "get", "foo").Tag)
}

func TestZAddZRankScenario(t *testing.T) {
	ast := assert.New(t)
	db := NewDB()

	v := run(db, "zadd", "s", "1.0", "alice")
	ast.Equal("added new entry", v.Str)

	v = run(db, "zadd", "s", "2.0", "bob")
	ast.Equal("added new entry", v.Str)

	v = run(db, "zadd", "s", "1.5", "alice")
	ast.Equal("entry updated", v.Str)

	v = run(db, "zrank", "s", "bob")
	ast.Equal(wire.TagInt, v.Tag)
	ast.Equal(int64(2), v.Int)

	v = run(db, "zrank", "s", "alice")
	ast.Equal(int64(1), v.Int)
}

func seedZQuerySet(db *DB) {
	run(db, "zadd", "z", "1.0", "a")
	run(db, "zadd", "z", "2.0", "b")
	run(db, "zadd", "z", "2.0", "c")
	run(db, "zadd", "z", "3.0", "d")
}

func TestZQueryFromStart(t *testing.T) {
	ast := assert.New(t)
	db := NewDB()
	seedZQuerySet(db)

	v := run(db, "zquery", "z", "2.0", "", "0", "10")
	ast.Equal(wire.TagArr, v.Tag)
	ast.Len(v.Arr, 6)
	ast.Equal("b", v.Arr[0].Str)
	ast.Equal(2.0, v.Arr[1].Dbl)
	ast.Equal("c", v.Arr[2].Str)
	ast.Equal(2.0, v.Arr[3].Dbl)
	ast.Equal("d", v.Arr[4].Str)
	ast.Equal(3.0, v.Arr[5].Dbl)
}

func TestZQueryWithOffsetAndLimit(t *testing.T) {
	ast := assert.New(t)
	db := NewDB()
	seedZQuerySet(db)

	v := run(db, "zquery", "z", "2.0", "", "1", "1")
	ast.Equal(wire.TagArr, v.Tag)
	ast.Len(v.Arr, 2)
	ast.Equal("c", v.Arr[0].Str)
	ast.Equal(2.0, v.Arr[1].Dbl)
}

func TestZQueryPastEndIsNotFound(t *testing.T) {
	ast := assert.New(t)
	db := NewDB()
	seedZQuerySet(db)

	v := run(db, "zquery", "z", "99.0", "", "0", "10")
	ast.Equal(wire.TagErr, v.Tag)
	ast.Equal(wire.ErrNotFound, v.Code)
}

func TestZQueryRejectsBadLimit(t *testing.T) {
	ast := assert.New(t)
	db := NewDB()
	seedZQuerySet(db)

	v := run(db, "zquery", "z", "1.0", "", "0", "0")
	ast.Equal(wire.TagErr, v.Tag)
	ast.Equal(wire.ErrBadArg, v.Code)
}

func TestWrongTypeIsBadArg(t *testing.T) {
	ast := assert.New(t)
	db := NewDB()
	run(db, "set", "k", "v")

	v := run(db, "zadd", "k", "1.0", "m")
	ast.Equal(wire.TagErr, v.Tag)
	ast.Equal(wire.ErrBadArg, v.Code)

	run(db, "zadd", "s", "1.0", "m")
	v = run(db, "get", "s")
	ast.Equal(wire.TagErr, v.Tag)
	ast.Equal(wire.ErrBadArg, v.Code)
}

func TestUnknownCommandOrArity(t *testing.T) {
	ast := assert.New(t)
	db := NewDB()

	v := run(db, "frobnicate", "x")
	ast.Equal(wire.TagErr, v.Tag)
	ast.Equal(wire.ErrUnknown, v.Code)

	v = run(db, "get", "a", "b")
	ast.Equal(wire.TagErr, v.Tag)
	ast.Equal(wire.ErrUnknown, v.Code)
}

func TestKeysEmitsAllKeys(t *testing.T) {
	ast := assert.New(t)
	db := NewDB()
	run(db, "set", "a", "1")
	run(db, "set", "b", "2")
	run(db, "zadd", "c", "1.0", "m")

	v := run(db, "keys")
	ast.Equal(wire.TagArr, v.Tag)
	ast.Len(v.Arr, 3)
	seen := map[string]bool{}
	for _, item := range v.Arr {
		seen[item.Str] = true
	}
	ast.True(seen["a"])
	ast.True(seen["b"])
	ast.True(seen["c"])
}

func TestZRemInvertedIntConvention(t *testing.T) {
	ast := assert.New(t)
	db := NewDB()
	run(db, "zadd", "s", "1.0", "alice")

	v := run(db, "zrem", "s", "alice")
	ast.Equal(int64(0), v.Int)

	v = run(db, "zrem", "s", "alice")
	ast.Equal(int64(1), v.Int)
}
