// internal/platform/di/container.go
package di

import (
	"context"
	"net/http"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"

	httpin "atelier/internal/adapters/in/http"
	outdb "atelier/internal/adapters/out/db"
	fsout "atelier/internal/adapters/out/firestore"
	gcsout "atelier/internal/adapters/out/gcs"
	"atelier/internal/adapters/out/localstore"
	mailout "atelier/internal/adapters/out/mail"
	usecase "atelier/internal/application/usecase"
	cartdom "atelier/internal/domain/cart"
	"atelier/internal/domain/session"
	appcfg "atelier/internal/infra/config"
	"atelier/internal/infra/database"
	firestoreinfra "atelier/internal/infra/firestore"
	"atelier/internal/infra/redisconn"
)

// Infra owns the process-wide clients. Stores that the active backend needs
// are opened strictly; everything else is best-effort so a missing optional
// service degrades a feature instead of killing boot.
type Infra struct {
	Config *appcfg.Config
	Log    *logrus.Logger

	Firestore     *firestoreinfra.ClientWrapper
	DB            *database.DB
	Redis         *redis.Client
	GCS           *storage.Client
	FirebaseApp   *firebase.App
	FirebaseAuth  *fbauth.Client
	SecretManager *secretmanager.Client
}

func NewInfra(ctx context.Context, cfg *appcfg.Config, log *logrus.Logger) (*Infra, error) {
	if cfg == nil {
		return nil, errors.New("di: config is nil")
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	inf := &Infra{Config: cfg, Log: log}

	credFile := strings.TrimSpace(cfg.FirestoreCredentialsFile)
	var clientOpts []option.ClientOption
	if credFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(credFile))
	}

	// strict: the configured remote cart backend
	switch cfg.RemoteBackend {
	case appcfg.RemoteBackendFirestore:
		fs, err := firestoreinfra.NewClient(ctx, cfg.FirestoreProjectID, credFile, log)
		if err != nil {
			return nil, errors.Wrap(err, "di: firestore init failed")
		}
		inf.Firestore = fs
	case appcfg.RemoteBackendPostgres:
		db, err := database.NewConnection(cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, log)
		if err != nil {
			return nil, errors.Wrap(err, "di: postgres init failed")
		}
		inf.DB = db
	}

	// strict: the configured guest cart backend (file needs no client)
	if cfg.GuestBackend == appcfg.GuestBackendRedis {
		rc, err := redisconn.NewClient(cfg.RedisAddr, cfg.RedisPass, log)
		if err != nil {
			return nil, errors.Wrap(err, "di: redis init failed")
		}
		inf.Redis = rc
	}

	// best-effort: Firebase Auth (API stays guest-only without it)
	if app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.FirebaseProjectID}, clientOpts...); err != nil {
		log.WithError(err).Warn("di: firebase app init failed, requests will be anonymous")
	} else {
		inf.FirebaseApp = app
		if auth, err := app.Auth(ctx); err != nil {
			log.WithError(err).Warn("di: firebase auth init failed, requests will be anonymous")
		} else {
			inf.FirebaseAuth = auth
		}
	}

	// best-effort: GCS (image refs fall back to public URL building)
	if gcs, err := storage.NewClient(ctx, clientOpts...); err != nil {
		log.WithError(err).Warn("di: gcs init failed, signed image urls disabled")
	} else {
		inf.GCS = gcs
	}

	// best-effort: Secret Manager (mail falls back to SENDGRID_API_KEY env)
	if sm, err := secretmanager.NewClient(ctx, clientOpts...); err != nil {
		log.WithError(err).Warn("di: secretmanager init failed, mail key comes from env")
	} else {
		inf.SecretManager = sm
	}

	return inf, nil
}

func (i *Infra) Close() error {
	if i == nil {
		return nil
	}
	var first error
	keep := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}
	if i.Firestore != nil {
		keep(i.Firestore.Close())
	}
	if i.DB != nil {
		keep(i.DB.Close())
	}
	if i.Redis != nil {
		keep(i.Redis.Close())
	}
	if i.GCS != nil {
		keep(i.GCS.Close())
	}
	if i.SecretManager != nil {
		keep(i.SecretManager.Close())
	}
	return first
}

// Container wires usecases and the HTTP surface on top of Infra.
type Container struct {
	Infra *Infra

	Stores     *usecase.StoreManager
	CheckoutUC *usecase.CheckoutUsecase

	Handler http.Handler
}

func NewContainer(ctx context.Context, cfg *appcfg.Config, log *logrus.Logger) (*Container, error) {
	inf, err := NewInfra(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	log = inf.Log

	local, err := buildDeviceStore(inf)
	if err != nil {
		_ = inf.Close()
		return nil, err
	}
	remote, err := buildRemoteStore(inf)
	if err != nil {
		_ = inf.Close()
		return nil, err
	}

	stores, err := usecase.NewStoreManager(&session.ContextProbe{}, local, remote, log)
	if err != nil {
		_ = inf.Close()
		return nil, errors.Wrap(err, "di: store manager init failed")
	}

	checkoutUC := usecase.NewCheckoutUsecase(buildOrderNotifier(ctx, inf), log)

	handler := httpin.NewRouter(httpin.RouterDeps{
		Stores:       stores,
		CheckoutUC:   checkoutUC,
		FirebaseAuth: inf.FirebaseAuth,
		AllowOrigin:  cfg.AllowOrigin,
		Log:          log,
	})

	return &Container{
		Infra:      inf,
		Stores:     stores,
		CheckoutUC: checkoutUC,
		Handler:    handler,
	}, nil
}

func (c *Container) Close() error {
	if c == nil {
		return nil
	}
	return c.Infra.Close()
}

func buildDeviceStore(inf *Infra) (cartdom.DeviceStore, error) {
	cfg := inf.Config
	switch cfg.GuestBackend {
	case appcfg.GuestBackendRedis:
		s := localstore.NewRedisStore(inf.Redis, inf.Log)
		s.TTL = cfg.GuestCartTTL
		return s, nil
	case appcfg.GuestBackendFile:
		s := localstore.NewFileStore(cfg.GuestCartDir, inf.Log)
		s.TTL = cfg.GuestCartTTL
		return s, nil
	}
	return nil, errors.Errorf("di: unknown guest backend %q", cfg.GuestBackend)
}

func buildRemoteStore(inf *Infra) (cartdom.RemoteStore, error) {
	cfg := inf.Config
	switch cfg.RemoteBackend {
	case appcfg.RemoteBackendPostgres:
		return outdb.NewCartRepositoryPG(inf.DB.Client), nil
	case appcfg.RemoteBackendFirestore:
		images := buildImageResolver(inf)
		cat := fsout.NewCatalogReaderFS(inf.Firestore.Client, images)
		return fsout.NewCartRepositoryFS(inf.Firestore.Client, cat), nil
	}
	return nil, errors.Errorf("di: unknown remote backend %q", cfg.RemoteBackend)
}

func buildImageResolver(inf *Infra) fsout.ImageURLResolver {
	cfg := inf.Config
	if inf.GCS != nil && strings.TrimSpace(cfg.GCSSignerEmail) != "" {
		return gcsout.NewSignedImageResolver(inf.GCS, cfg.GCSBucket, cfg.GCSSignerEmail, cfg.GCSSignedTTL, inf.Log)
	}
	return gcsout.NewPublicImageResolver(cfg.GCSBucket)
}

func buildOrderNotifier(ctx context.Context, inf *Infra) usecase.OrderNotifier {
	cfg := inf.Config
	if strings.TrimSpace(cfg.SendGridFrom) == "" {
		inf.Log.Info("di: SENDGRID_FROM empty, order confirmation mail disabled")
		return nil
	}

	provider := &mailout.SendGridKeyProviderSM{
		SM:        inf.SecretManager,
		ProjectID: cfg.GCPProjectID,
		SecretID:  cfg.SendGridSecretID,
	}
	apiKey, err := provider.APIKey(ctx)
	if err != nil {
		inf.Log.WithError(err).Warn("di: sendgrid key unavailable, order confirmation mail disabled")
		return nil
	}

	client := mailout.NewSendGridClient(apiKey, inf.Log)
	return mailout.NewOrderMailer(client, cfg.SendGridFrom)
}
