package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	vipercast "github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/ArtAndreev/timed-computing-service/client"
	"github.com/ArtAndreev/timed-computing-service/server"
	"github.com/ArtAndreev/timed-computing-service/service"
)

const envPrefix = "TIMEDCOMP"

type Config struct {
	Addr      string // computing service listen address, the loader dials it
	AdminAddr string // health and metrics, empty disables it
	Verbose   bool

	Server  *server.Config
	Service *service.Config

	Loads map[string]*client.Config

	Parallel     int           // loader connections
	RPS          int           // loader requests per second per connection, 0 is unlimited
	DrainTimeout time.Duration // how long the loader waits for late responses
}

func Get() (*Config, error) {
	v := newViper()
	v.AddConfigPath("etc")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("cannot read config: %w", err)
		}
	}

	return parse(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigName("config")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("addr", ":12345")
	v.SetDefault("admin_addr", "")
	v.SetDefault("verbose", false)
	v.SetDefault("max_line_len", 1024)
	v.SetDefault("max_inflight", 0)

	v.SetDefault("service.parallel", runtime.NumCPU())
	v.SetDefault("service.max_client_conn", 1024)
	v.SetDefault("service.timeout", 5)

	v.SetDefault("parallel", 1)
	v.SetDefault("rps", 0)
	v.SetDefault("drain_timeout", 30*time.Second)

	return v
}

// nolint:funlen
func parse(v *viper.Viper) (*Config, error) {
	cfg := new(Config)

	var err error

	cfg.Addr, err = vipercast.ToStringE(v.Get("addr"))
	if err != nil {
		return nil, fmt.Errorf("cannot parse addr value: %w", err)
	}

	cfg.AdminAddr, err = vipercast.ToStringE(v.Get("admin_addr"))
	if err != nil {
		return nil, fmt.Errorf("cannot parse admin_addr value: %w", err)
	}

	cfg.Verbose, err = vipercast.ToBoolE(v.Get("verbose"))
	if err != nil {
		return nil, fmt.Errorf("cannot parse verbose value: %w", err)
	}

	cfg.Server, err = parseServer(v)
	if err != nil {
		return nil, fmt.Errorf("cannot parse server config: %w", err)
	}
	cfg.Server.Verbose = cfg.Verbose

	cfg.Service, err = parseService(v)
	if err != nil {
		return nil, fmt.Errorf("cannot parse service config: %w", err)
	}
	cfg.Service.Verbose = cfg.Verbose

	if rawValue := v.Get("load"); rawValue != nil {
		rawMap, err := vipercast.ToStringMapE(rawValue)
		if err != nil {
			return nil, fmt.Errorf("cannot parse load list: %w", err)
		}

		cfg.Loads, err = parseLoads(rawMap)
		if err != nil {
			return nil, fmt.Errorf("cannot parse load list: %w", err)
		}
	}

	cfg.Parallel, err = vipercast.ToIntE(v.Get("parallel"))
	if err != nil {
		return nil, fmt.Errorf("cannot parse parallel value: %w", err)
	}
	if cfg.Parallel < 1 {
		return nil, fmt.Errorf("parallel must be positive, got %d", cfg.Parallel)
	}

	cfg.RPS, err = vipercast.ToIntE(v.Get("rps"))
	if err != nil {
		return nil, fmt.Errorf("cannot parse rps value: %w", err)
	}
	if cfg.RPS < 0 {
		return nil, fmt.Errorf("rps must not be negative, got %d", cfg.RPS)
	}

	cfg.DrainTimeout, err = vipercast.ToDurationE(v.Get("drain_timeout"))
	if err != nil {
		return nil, fmt.Errorf("cannot parse drain_timeout value: %w", err)
	}

	return cfg, nil
}

func parseServer(v *viper.Viper) (*server.Config, error) {
	srvCfg := new(server.Config)

	var err error

	srvCfg.MaxLineLen, err = vipercast.ToIntE(v.Get("max_line_len"))
	if err != nil {
		return nil, fmt.Errorf("cannot parse max_line_len: %w", err)
	}
	if srvCfg.MaxLineLen < 0 {
		return nil, fmt.Errorf("max_line_len must not be negative, got %d", srvCfg.MaxLineLen)
	}

	srvCfg.MaxInflight, err = vipercast.ToIntE(v.Get("max_inflight"))
	if err != nil {
		return nil, fmt.Errorf("cannot parse max_inflight: %w", err)
	}
	if srvCfg.MaxInflight < 0 {
		return nil, fmt.Errorf("max_inflight must not be negative, got %d", srvCfg.MaxInflight)
	}

	return srvCfg, nil
}

func parseService(v *viper.Viper) (*service.Config, error) {
	srvCfg := new(service.Config)

	var err error

	srvCfg.Parallel, err = vipercast.ToIntE(v.Get("service.parallel"))
	if err != nil {
		return nil, fmt.Errorf("cannot parse parallel: %w", err)
	}
	if srvCfg.Parallel < 1 {
		return nil, fmt.Errorf("parallel must be positive, got %d", srvCfg.Parallel)
	}

	srvCfg.MaxClientConn, err = vipercast.ToIntE(v.Get("service.max_client_conn"))
	if err != nil {
		return nil, fmt.Errorf("cannot parse max_client_conn: %w", err)
	}
	if srvCfg.MaxClientConn < 0 {
		return nil, fmt.Errorf("max_client_conn must not be negative, got %d", srvCfg.MaxClientConn)
	}

	// whole seconds
	timeout, err := vipercast.ToInt64E(v.Get("service.timeout"))
	if err != nil {
		return nil, fmt.Errorf("cannot parse timeout: %w", err)
	}
	if timeout < 0 {
		return nil, fmt.Errorf("timeout must not be negative, got %d", timeout)
	}
	srvCfg.Timeout = time.Duration(timeout) * time.Second

	return srvCfg, nil
}

func parseLoads(raw map[string]interface{}) (map[string]*client.Config, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	cfgs := make(map[string]*client.Config, len(raw))

	for name, ccfg := range raw {
		v := viper.New()
		v.SetDefault("count", 1)
		v.SetDefault("difficulty_min", 0)
		v.SetDefault("difficulty_max", 0)

		rawMap, err := vipercast.ToStringMapE(ccfg)
		if err != nil {
			return nil, fmt.Errorf("client config: cannot parse config: %w", err)
		}

		clientCfg := new(client.Config)

		if err = v.MergeConfigMap(rawMap); err != nil {
			return nil, fmt.Errorf("client config: cannot merge map to config: %w", err)
		}

		clientCfg.Count, err = vipercast.ToIntE(v.Get("count"))
		if err != nil {
			return nil, fmt.Errorf("client config: cannot parse count: %w", err)
		}

		clientCfg.DifficultyMin, err = vipercast.ToUint32E(v.Get("difficulty_min"))
		if err != nil {
			return nil, fmt.Errorf("client config: cannot parse difficulty_min: %w", err)
		}

		clientCfg.DifficultyMax, err = vipercast.ToUint32E(v.Get("difficulty_max"))
		if err != nil {
			return nil, fmt.Errorf("client config: cannot parse difficulty_max: %w", err)
		}

		cfgs[name] = clientCfg
	}

	return cfgs, nil
}
