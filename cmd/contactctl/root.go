package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"contact_book/internal/config"
	"contact_book/internal/dao/cache"
	"contact_book/internal/service"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// cli 命令共享的状态，由根命令的全局 flag 填充
type cli struct {
	configPath string
	baseURL    string
	timeout    time.Duration
	verbose    bool

	svc    service.ContactBookService
	store  cache.AsyncCacheService
	closed bool
}

// newRootCmd 返回根命令及其共享状态，调用方在 Execute 之后负责 close
func newRootCmd() (*cobra.Command, *cli) {
	app := &cli{}
	root := &cobra.Command{
		Use:   "contactctl",
		Short: "Manage contacts through the contacts REST API",
		Long: `contactctl talks to the same contacts API as the web app.

Reads go through the query cache with retries; writes are retried once.
Every command prints the API result as JSON.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.init()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&app.configPath, "config", "c", "", "config file (default: configs/config.toml)")
	flags.StringVar(&app.baseURL, "base-url", "", "contacts API base URL, overrides apiConfig.baseURL")
	flags.DurationVar(&app.timeout, "timeout", 0, "per-request timeout, overrides apiConfig.timeout")
	flags.BoolVarP(&app.verbose, "verbose", "v", false, "log requests to stderr")

	root.AddCommand(
		newListCmd(app),
		newSearchCmd(app),
		newGetCmd(app),
		newCreateCmd(app),
		newUpdateCmd(app),
		newDeleteCmd(app),
		newDeleteAllCmd(app),
	)
	return root, app
}

// init 加载配置并组装服务，命令行缓存固定使用内存
func (a *cli) init() error {
	paths := config.DefaultPaths
	if a.configPath != "" {
		if _, err := os.Stat(a.configPath); err != nil {
			return fmt.Errorf("config file: %w", err)
		}
		paths = []string{a.configPath}
	}
	conf, err := config.Load(paths...)
	if err != nil {
		return err
	}
	if a.baseURL != "" {
		conf.ApiConfig.BaseURL = a.baseURL
	}
	if a.timeout > 0 {
		conf.ApiConfig.Timeout = a.timeout
	}

	logger := zap.NewNop()
	if a.verbose {
		if logger, err = zap.NewDevelopment(); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
	}
	zap.ReplaceGlobals(logger)

	a.store = cache.NewMemoryCache(1, conf.CacheConfig.TaskChanSize)
	a.svc = service.NewServices(conf, a.store, nil).Book
	return nil
}

// close 停止缓存 worker 并刷新日志，可重复调用
func (a *cli) close() {
	if a.closed {
		return
	}
	a.closed = true
	if a.store != nil {
		_ = a.store.Close()
	}
	_ = zap.L().Sync()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
