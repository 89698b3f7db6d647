package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/oseayemenre/bookshelf/docs"
	"github.com/oseayemenre/bookshelf/internal/api"
	"github.com/oseayemenre/bookshelf/internal/config"
	"github.com/oseayemenre/bookshelf/internal/covers"
	"github.com/oseayemenre/bookshelf/internal/imaging"
	"github.com/oseayemenre/bookshelf/internal/logger"
	"github.com/oseayemenre/bookshelf/internal/store"
)

type Server struct {
	logger logger.Logger
	covers *covers.Service
	store  store.Store
	config *config.Config
}

func NewServer(logger logger.Logger, covers *covers.Service, store store.Store, config *config.Config) *Server {
	return &Server{
		logger: logger,
		covers: covers,
		store:  store,
		config: config,
	}
}

func (s *Server) Mount() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)

	r.Get("/swagger/*", httpSwagger.WrapHandler)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})

	server := api.New(r, s.logger, s.covers, s.store, s.config)

	server.RegisterRoutes()

	return r
}

func newCompressor(cfg *config.Config) *imaging.Compressor {
	return &imaging.Compressor{
		MaxDimension: cfg.Compress_max_dimension,
		Quality:      cfg.Compress_quality,
		Timeout:      cfg.Compress_timeout,
		MaxPixels:    cfg.Compress_max_pixels,
	}
}

// newObjectStore returns nil when covers should stay inline.
func newObjectStore(ctx context.Context, cfg *config.Config) (store.ObjectStore, error) {
	switch cfg.Object_store {
	case "cloudinary":
		cld, err := cloudinary.NewFromParams(cfg.Cloudinary_cloud, cfg.Cloudinary_key, cfg.Cloudinary_secret)
		if err != nil {
			return nil, fmt.Errorf("error configuring cloudinary: %v", err)
		}
		return store.NewCloudinaryStore(cld, cfg.Cloudinary_folder), nil

	case "s3":
		opts := []func(*awsconfig.LoadOptions) error{}
		if cfg.S3_region != "" {
			opts = append(opts, awsconfig.WithRegion(cfg.S3_region))
		}

		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("unable to load SDK config: %v", err)
		}

		return store.NewS3Store(s3.NewFromConfig(awsCfg), cfg.S3_bucket, awsCfg.Region, cfg.S3_public_url), nil
	}

	return nil, nil
}

func HTTPCommand(ctx context.Context, opts *rootOptions) *cobra.Command {
	var addr int
	var env string

	cmd := &cobra.Command{
		Use:   "http",
		Short: "run bookshelf http server",
		RunE: func(cmd *cobra.Command, args []string) error {
			sig := make(chan os.Signal, 1)
			signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}

			if err := cfg.ValidateServer(); err != nil {
				return err
			}

			logger, err := logger.New(os.Stderr, env, version, cfg.Debug)
			if err != nil {
				return err
			}

			objectStore, err := newObjectStore(ctx, cfg)
			if err != nil {
				return err
			}

			db, err := store.New(ctx, cfg.Db_driver, cfg.Db_conn, cfg.Db_name)
			if err != nil {
				return err
			}

			defer db.Close()

			baseServer := NewServer(logger, covers.New(newCompressor(cfg), objectStore, logger), db, cfg)

			httpServer := &http.Server{
				Addr:        fmt.Sprintf(":%d", addr),
				Handler:     baseServer.Mount(),
				IdleTimeout: 15 * time.Minute,
			}
			errCh := make(chan error, 1)

			logger.Info("server startup", "status", fmt.Sprintf("server starting on port: %d", addr), "driver", cfg.Db_driver, "object_store", cfg.Object_store)
			go func() {
				if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
			}()

			select {
			case err := <-errCh:
				return err

			case <-sig:
				logger.Info("server shutdown", "status", "kill signal received")
				ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
				defer cancel()

				if err := httpServer.Shutdown(ctx); err != nil {
					return fmt.Errorf("error shutting down server: %v", err)
				}

				logger.Info("server shutdown", "status", "shutdown complete...")
				return nil
			}
		},
	}

	cmd.Flags().IntVarP(&addr, "addr", "a", 8080, "server address")
	cmd.Flags().StringVarP(&env, "env", "e", "dev", "current working environment")

	return cmd
}
