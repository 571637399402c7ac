package kvxredis

import "github.com/Abraxas-365/gatekeep/pkg/errx"

var redisErrors = errx.NewRegistry("KVX_REDIS")

var (
	ErrRead   = redisErrors.Register("READ", errx.TypeExternal, 0, "Redis read failed")
	ErrWrite  = redisErrors.Register("WRITE", errx.TypeExternal, 0, "Redis write failed")
	ErrScan   = redisErrors.Register("SCAN", errx.TypeExternal, 0, "Redis scan failed")
	ErrBatch  = redisErrors.Register("BATCH", errx.TypeExternal, 0, "Redis batch failed")
	ErrScript = redisErrors.Register("SCRIPT", errx.TypeExternal, 0, "Redis script failed")
	ErrDecode = redisErrors.Register("DECODE", errx.TypeInternal, 0, "Unexpected Redis reply")
)
