// Package config decodes the narrow set of options the scheduler core
// recognises from the process environment, the way Nomad's agent
// config layer decodes its own options — but scoped to exactly what the
// core needs, since configuration *parsing* beyond env decoding is out of
// scope for this core.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-envparse"
	"github.com/go-viper/mapstructure/v2"
)

// Config holds every option the core recognises, plus the staged-task
// timeout and reconcile delay (left as tunable defaults rather than fixed
// constants) and the suicide jitter window.
type Config struct {
	// ZKFutureTimeout is the timeout for calls into AppRepository/TaskTracker
	// persistence. It is copied into scheduler.Config; the engine does not
	// apply it to any call, so persistence calls are bounded only by the
	// caller's context.
	ZKFutureTimeout time.Duration `mapstructure:"zk_future_timeout"`

	// DefaultWait is the wait for synchronous API-bridge calls (admin
	// operations). Defaults to 3s. It is copied into scheduler.Config; no
	// code in this module reads it.
	DefaultWait time.Duration `mapstructure:"default_wait"`

	// StagedTaskTimeout is how long a task may sit in staging before
	// resourceOffers' pre-step kills it. Default: one launch-grace window.
	StagedTaskTimeout time.Duration `mapstructure:"staged_task_timeout"`

	// ReconcileDelay is how long the agent waits after start-up before
	// calling ReconcileAndScaleTasks once, giving the master time to replay
	// task state. The agent does not run a reconcile on registration.
	ReconcileDelay time.Duration `mapstructure:"reconcile_delay"`

	// SuicideJitter bounds the random delay added before exiting on a
	// master-level error, so that a fleet of framework instances hit by
	// the same error storm does not all exit in the same instant.
	SuicideJitter time.Duration `mapstructure:"suicide_jitter"`

	// MaxStatusHistory caps per-task status observation history.
	MaxStatusHistory int `mapstructure:"max_status_history"`
}

// Default returns the configuration used when the environment supplies
// nothing.
func Default() Config {
	return Config{
		ZKFutureTimeout:   5 * time.Second,
		DefaultWait:       3 * time.Second,
		StagedTaskTimeout: 60 * time.Second,
		ReconcileDelay:    15 * time.Second,
		SuicideJitter:     250 * time.Millisecond,
		MaxStatusHistory:  10,
	}
}

// envPrefix namespaces the variables this package reads so it never
// shadows unrelated process environment state.
const envPrefix = "MARATHON_SCHED_"

// FromEnviron decodes Config overrides from the process environment. Unset
// variables leave the corresponding Default() field untouched.
func FromEnviron() (Config, error) {
	return FromReader(strings.NewReader(renderEnviron()))
}

// FromReader decodes overrides from an envfile-formatted reader (the format
// go-envparse understands), letting callers (and tests) supply a config
// snippet without mutating the real process environment.
func FromReader(r *strings.Reader) (Config, error) {
	cfg := Default()

	raw, err := envparse.Parse(r)
	if err != nil {
		return cfg, err
	}
	if len(raw) == 0 {
		return cfg, nil
	}

	normalized := make(map[string]any, len(raw))
	for k, v := range raw {
		if !strings.HasPrefix(k, envPrefix) {
			continue
		}
		key := strings.ToLower(strings.TrimPrefix(k, envPrefix))
		normalized[key] = v
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
		),
	})
	if err != nil {
		return cfg, err
	}
	if err := decoder.Decode(normalized); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// renderEnviron reconstructs an envfile-style document from os.Environ so it
// can be fed through the same envparse/mapstructure path FromReader uses.
func renderEnviron() string {
	var b strings.Builder
	for _, kv := range os.Environ() {
		b.WriteString(kv)
		b.WriteByte('\n')
	}
	return b.String()
}
