package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// FromEnv overlays UNIQM_* environment variables onto cfg.
func FromEnv(cfg *Config) error {
	str := func(name string, dst *string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
	var err error
	num := func(name string, dst *int) {
		if v := os.Getenv(name); v != "" && err == nil {
			n, perr := strconv.Atoi(v)
			if perr != nil {
				err = fmt.Errorf("config: %s: %w", name, perr)
				return
			}
			*dst = n
		}
	}
	dur := func(name string, dst *time.Duration) {
		if v := os.Getenv(name); v != "" && err == nil {
			d, perr := time.ParseDuration(v)
			if perr != nil {
				err = fmt.Errorf("config: %s: %w", name, perr)
				return
			}
			*dst = d
		}
	}
	flag := func(name string, dst *bool) {
		if v := os.Getenv(name); v != "" && err == nil {
			b, perr := strconv.ParseBool(v)
			if perr != nil {
				err = fmt.Errorf("config: %s: %w", name, perr)
				return
			}
			*dst = b
		}
	}

	str("UNIQM_REDIS_ADDR", &cfg.Redis.Addr)
	str("UNIQM_REDIS_USERNAME", &cfg.Redis.Username)
	str("UNIQM_REDIS_PASSWORD", &cfg.Redis.Password)
	num("UNIQM_REDIS_DB", &cfg.Redis.DB)
	str("UNIQM_PREFIX", &cfg.Prefix)

	num("UNIQM_CAPACITY", &cfg.Pool.Capacity)
	dur("UNIQM_FINISHED_AGE", &cfg.Pool.FinishedAge)
	dur("UNIQM_FAILED_AGE", &cfg.Pool.FailedAge)
	dur("UNIQM_NO_CALLBACK_AGE", &cfg.Pool.NoCallbackAge)
	dur("UNIQM_IN_PROGRESS_AGE", &cfg.Pool.InProgressAge)
	dur("UNIQM_PERIOD", &cfg.Pool.Period)
	dur("UNIQM_MIN_JITTER", &cfg.Pool.MinJitter)
	dur("UNIQM_MAX_JITTER", &cfg.Pool.MaxJitter)
	flag("UNIQM_ATOMIC_CLAIM", &cfg.Pool.AtomicClaim)
	dur("UNIQM_CLAIM_LOCK_TTL", &cfg.Pool.ClaimLockTTL)
	str("UNIQM_SPAWNER_ID", &cfg.Pool.SpawnerID)

	str("UNIQM_METRICS_ADDR", &cfg.Metrics.Addr)
	str("UNIQM_METRICS_NAMESPACE", &cfg.Metrics.Namespace)
	str("UNIQM_LOG_LEVEL", &cfg.Log.Level)
	str("UNIQM_LOG_FORMAT", &cfg.Log.Format)
	return err
}
