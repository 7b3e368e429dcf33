package redis

import "github.com/redis/go-redis/v9"

// Key layout under a prefix p (p carries a hash tag so every key of one
// resource lands in the same cluster slot):
//
//	p:seq        INCR counter for ids
//	p:row:<id>   hash {data, created_at, updated_at, deleted_at}
//	p:active     zset of active ids, score = id
//	p:all        zset of every id, score = id
//
// deleted_at is "" while the row is active. Each script checks and writes in
// one step, which is what makes delete and restore atomic per row.

var createScript = redis.NewScript(`
local id = redis.call('INCR', KEYS[1])
local row = ARGV[1] .. id
redis.call('HSET', row, 'data', ARGV[2], 'created_at', ARGV[3], 'updated_at', ARGV[3], 'deleted_at', '')
redis.call('ZADD', KEYS[2], id, id)
redis.call('ZADD', KEYS[3], id, id)
return {id, redis.call('HGETALL', row)}
`)

var updateScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then return false end
if redis.call('HGET', KEYS[1], 'deleted_at') ~= '' then return false end
redis.call('HSET', KEYS[1], 'data', ARGV[1], 'updated_at', ARGV[2])
return redis.call('HGETALL', KEYS[1])
`)

var softDeleteScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then return false end
if redis.call('HGET', KEYS[1], 'deleted_at') ~= '' then return false end
redis.call('HSET', KEYS[1], 'deleted_at', ARGV[1])
redis.call('ZREM', KEYS[2], ARGV[2])
return redis.call('HGETALL', KEYS[1])
`)

// restoreScript replies {changed, fields}; changed is 0 for a row that was
// already active.
var restoreScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then return false end
if redis.call('HGET', KEYS[1], 'deleted_at') == '' then
  return {0, redis.call('HGETALL', KEYS[1])}
end
redis.call('HSET', KEYS[1], 'deleted_at', '')
redis.call('ZADD', KEYS[2], ARGV[1], ARGV[1])
return {1, redis.call('HGETALL', KEYS[1])}
`)

// listScript reads the window and the total from one index in a single step:
// {total, id1, fields1, id2, fields2, ...}. ARGV[2] and ARGV[3] are the ZRANGE
// bounds as decimal strings and must not go through tonumber: Lua formats
// large doubles in exponent form, which ZRANGE rejects.
var listScript = redis.NewScript(`
local total = redis.call('ZCARD', KEYS[1])
local ids = redis.call('ZRANGE', KEYS[1], ARGV[2], ARGV[3])
local out = {total}
for _, id in ipairs(ids) do
  table.insert(out, id)
  table.insert(out, redis.call('HGETALL', ARGV[1] .. id))
end
return out
`)
