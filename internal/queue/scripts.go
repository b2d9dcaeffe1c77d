package queue

import "github.com/redis/go-redis/v9"

// indexScript adds an entry to the queue ZSET and, when the ZSET did not exist
// before, marks the queue claimable. Doing both atomically keeps an entry from
// landing in a queue whose drain has just released it without a status record.
// The ZSET is also missing while a drain runs the last entry it popped; HSETNX
// leaves that Locked status in place and releaseScript requeues the queue.
//
// KEYS: queue zset, status hash. ARGV: score, member, queue name, NoLock.
var indexScript = redis.NewScript(`
local existed = redis.call('EXISTS', KEYS[1])
redis.call('ZADD', KEYS[1], ARGV[1], ARGV[2])
if existed == 0 then
  redis.call('HSETNX', KEYS[2], ARGV[3], ARGV[4])
end
return existed
`)

// dequeueScript pops the oldest entry: it marks the job in progress first, then
// removes the member and its payload. Returns {member, payload} or false.
//
// KEYS: queue zset. ARGV: key prefix with separator, job status prefix,
// in-progress record, ttl seconds (<= 0 keeps forever).
var dequeueScript = redis.NewScript(`
local items = redis.call('ZRANGE', KEYS[1], 0, 0)
if #items == 0 then return false end
local member = items[1]
local data = redis.call('GET', member)
if not data then data = '' end
local skey = ARGV[2] .. string.sub(member, string.len(ARGV[1]) + 1)
if tonumber(ARGV[4]) > 0 then
  redis.call('SET', skey, ARGV[3], 'EX', ARGV[4])
else
  redis.call('SET', skey, ARGV[3])
end
redis.call('ZREM', KEYS[1], member)
redis.call('DEL', member)
return {member, data}
`)

// claimScript flips a queue from NoLock to Locked; returns 1 on success.
//
// KEYS: status hash. ARGV: queue name, NoLock, Locked.
var claimScript = redis.NewScript(`
if redis.call('HGET', KEYS[1], ARGV[1]) == ARGV[2] then
  redis.call('HSET', KEYS[1], ARGV[1], ARGV[3])
  return 1
end
return 0
`)

// releaseScript ends a drain: the status record is deleted when the queue is
// empty and reset to NoLock when entries remain. Returns 1 when reset.
//
// KEYS: status hash, queue zset. ARGV: queue name, NoLock.
var releaseScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[2]) == 1 then
  redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
  return 1
end
redis.call('HDEL', KEYS[1], ARGV[1])
return 0
`)
