package reconxredis

import "github.com/Abraxas-365/gatekeep/pkg/errx"

var redisErrors = errx.NewRegistry("RECON_REDIS")

var (
	ErrPush     = redisErrors.Register("PUSH", errx.TypeExternal, 0, "Redis push failed")
	ErrPop      = redisErrors.Register("POP", errx.TypeExternal, 0, "Redis pop failed")
	ErrAck      = redisErrors.Register("ACK", errx.TypeExternal, 0, "Redis ack failed")
	ErrRetry    = redisErrors.Register("RETRY", errx.TypeExternal, 0, "Redis retry failed")
	ErrPromote  = redisErrors.Register("PROMOTE", errx.TypeExternal, 0, "Redis promote failed")
	ErrEncoding = redisErrors.Register("ENCODING", errx.TypeInternal, 0, "Failed to encode task")
)
