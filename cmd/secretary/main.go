package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/hrygo/secretary/internal/profile"
	"github.com/hrygo/secretary/internal/timezone"
	"github.com/hrygo/secretary/internal/version"
	"github.com/hrygo/secretary/plugin/ai"
	"github.com/hrygo/secretary/plugin/ai/tool"
	"github.com/hrygo/secretary/server"
	authmw "github.com/hrygo/secretary/server/middleware"
	"github.com/hrygo/secretary/server/service/assistant"
	"github.com/hrygo/secretary/store"
	"github.com/hrygo/secretary/store/db"
)

var (
	rootCmd = &cobra.Command{
		Use:   "secretary",
		Short: "A multilingual business assistant that routes chat messages to domain handlers and agents.",
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}

	chatCmd = &cobra.Command{
		Use:   "chat [message]",
		Short: "Send one message from the command line",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context(), strings.Join(args, " "))
		},
	}

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := loadProfile()
			if err != nil {
				return err
			}
			s, err := openStore(cmd.Context(), p)
			if err != nil {
				return err
			}
			defer s.Close()
			slog.Info("migrations applied", "driver", p.Driver)
			return nil
		},
	}

	tokenCmd = &cobra.Command{
		Use:   "token",
		Short: "Issue an API token for a tenant user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := loadProfile()
			if err != nil {
				return err
			}
			token, err := issueToken(p.Runtime.JWTSecret, viper.GetString("tenant"), viper.GetString("user"), viper.GetDuration("ttl"), time.Now())
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}

	moduleCmd = &cobra.Command{
		Use:       "module [enable|disable] [module-id]",
		Short:     "Enable or disable a module for a tenant",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"enable", "disable"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if args[0] != "enable" && args[0] != "disable" {
				return errors.Errorf("unknown action %q", args[0])
			}
			p, err := loadProfile()
			if err != nil {
				return err
			}
			s, err := openStore(cmd.Context(), p)
			if err != nil {
				return err
			}
			defer s.Close()
			return s.SetModuleEnabled(cmd.Context(), viper.GetString("tenant"), args[1], args[0] == "enable")
		},
	}
)

func init() {
	rootCmd.Version = version.Version

	rootCmd.PersistentFlags().String("mode", "dev", `mode of server, can be "prod" or "dev" or "demo"`)
	rootCmd.PersistentFlags().String("addr", "", "address of server")
	rootCmd.PersistentFlags().Int("port", 8081, "port of server")
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "sqlite", "database driver (sqlite or postgres)")
	rootCmd.PersistentFlags().String("dsn", "", "database source name (aka. DSN)")
	rootCmd.PersistentFlags().String("tenant", "default", "tenant id used by chat and module commands")

	chatCmd.Flags().Bool("agent", false, "use the agent handoff runtime instead of the routing pipeline")
	chatCmd.Flags().String("locale", "ru", "reply locale (ru or kz)")

	for _, name := range []string{"mode", "addr", "port", "data", "driver", "dsn", "tenant"} {
		if err := viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			panic(err)
		}
	}
	for _, name := range []string{"agent", "locale"} {
		if err := viper.BindPFlag(name, chatCmd.Flags().Lookup(name)); err != nil {
			panic(err)
		}
	}

	tokenCmd.Flags().String("user", "", "user id carried as the token subject (defaults to the tenant)")
	tokenCmd.Flags().Duration("ttl", 24*time.Hour, "token lifetime, 0 for no expiry")
	for _, name := range []string{"user", "ttl"} {
		if err := viper.BindPFlag(name, tokenCmd.Flags().Lookup(name)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("secretary")
	viper.AutomaticEnv()

	rootCmd.AddCommand(serveCmd, chatCmd, migrateCmd, tokenCmd, moduleCmd)
}

func loadProfile() (*profile.Profile, error) {
	p := &profile.Profile{
		Mode:   viper.GetString("mode"),
		Addr:   viper.GetString("addr"),
		Port:   viper.GetInt("port"),
		Data:   viper.GetString("data"),
		Driver: viper.GetString("driver"),
		DSN:    viper.GetString("dsn"),
	}
	if err := p.FromEnv(); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	p.Version = version.GetCurrentVersion(p.Mode)
	return p, nil
}

// issueToken signs an API token. The user defaults to the tenant; ttl 0 means no expiry.
func issueToken(secret, tenant, user string, ttl time.Duration, now time.Time) (string, error) {
	if secret == "" {
		return "", errors.New("SECRETARY_JWT_SECRET is not set")
	}
	if tenant == "" {
		return "", errors.New("tenant is required")
	}
	if user == "" {
		user = tenant
	}
	claims := jwt.RegisteredClaims{IssuedAt: jwt.NewNumericDate(now)}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return authmw.SignToken(secret, authmw.Identity{TenantID: tenant, UserID: user}, claims)
}

func openStore(ctx context.Context, p *profile.Profile) (*store.Store, error) {
	driver, err := db.NewDBDriver(p)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create db driver")
	}
	s := store.New(driver, p)
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, errors.Wrap(err, "failed to migrate")
	}
	return s, nil
}

// newAssistant wires the store and models into a service. The returned cleanup releases both.
func newAssistant(ctx context.Context, p *profile.Profile) (*assistant.Service, func(), error) {
	s, err := openStore(ctx, p)
	if err != nil {
		return nil, nil, err
	}

	loc, err := timezone.ParseTimezone(p.Runtime.Timezone)
	if err != nil {
		slog.Warn("falling back to default timezone", "timezone", p.Runtime.Timezone, "error", err)
	}

	cfg := assistant.Config{
		Store:               s,
		Location:            loc,
		ConfidenceThreshold: p.Runtime.ConfidenceThreshold,
		MaxHops:             p.Runtime.MaxHops,
		ClassifierTimeout:   p.Runtime.LLMTimeout,
	}

	aiConfig := ai.NewConfigFromProfile(p)
	if err := aiConfig.Validate(); err != nil {
		s.Close()
		return nil, nil, errors.Wrap(err, "invalid AI config")
	}
	if aiConfig.Enabled {
		if cfg.LLM, err = ai.NewLLMService(&aiConfig.LLM); err != nil {
			s.Close()
			return nil, nil, errors.Wrap(err, "failed to create LLM service")
		}
	} else {
		slog.Warn("no reasoning model configured, falling back to keyword routing")
	}
	if aiConfig.Embedding.Provider != "" {
		if cfg.Embedder, err = ai.NewEmbeddingService(&aiConfig.Embedding); err != nil {
			slog.Warn("semantic memory disabled", "error", err)
		}
	}

	svc, err := assistant.NewService(cfg)
	if err != nil {
		s.Close()
		return nil, nil, err
	}
	return svc, func() {
		svc.Close()
		if err := s.Close(); err != nil {
			slog.Warn("failed to close store", "error", err)
		}
	}, nil
}

func runServe(ctx context.Context) error {
	p, err := loadProfile()
	if err != nil {
		return err
	}
	svc, cleanup, err := newAssistant(ctx, p)
	if err != nil {
		return err
	}
	defer cleanup()

	s, err := server.NewServer(ctx, p, svc)
	if err != nil {
		return errors.Wrap(err, "failed to create server")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.Start(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		s.Shutdown(context.Background())
		return nil
	})
	printGreetings(p)
	return g.Wait()
}

func runChat(ctx context.Context, text string) error {
	p, err := loadProfile()
	if err != nil {
		return err
	}
	svc, cleanup, err := newAssistant(ctx, p)
	if err != nil {
		return err
	}
	defer cleanup()

	tenant := viper.GetString("tenant")
	in := &assistant.Input{
		Scope: tool.Scope{TenantID: tenant, UserID: tenant, Locale: viper.GetString("locale")},
		Text:  text,
	}

	var reply *assistant.Reply
	if viper.GetBool("agent") {
		reply, err = svc.Converse(ctx, in)
	} else {
		reply, err = svc.Respond(ctx, in)
	}
	if err != nil {
		return err
	}
	for _, status := range reply.Statuses {
		fmt.Println(status)
	}
	fmt.Println(reply.Text)
	return nil
}

func printGreetings(p *profile.Profile) {
	fmt.Printf("Secretary %s started successfully!\n", p.Version)
	fmt.Printf("Data directory: %s\n", p.Data)
	fmt.Printf("Database driver: %s\n", p.Driver)
	fmt.Printf("Mode: %s\n", p.Mode)
	if len(p.Addr) == 0 {
		fmt.Printf("Server running on port %d\n", p.Port)
	} else {
		fmt.Printf("Server running on %s:%d\n", p.Addr, p.Port)
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}
