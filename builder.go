package authkit

import (
	"errors"

	"github.com/redis/go-redis/v9"
	"github.com/taskhive/authkit/internal/audit"
	"github.com/taskhive/authkit/internal/metrics"
	"github.com/taskhive/authkit/internal/rate"
	"github.com/taskhive/authkit/internal/stores"
	"github.com/taskhive/authkit/jwt"
	"github.com/taskhive/authkit/mail"
	"github.com/taskhive/authkit/password"
	"github.com/taskhive/authkit/permission"
)

// Builder assembles an Engine. Permissions and roles are fixed at
// build time; the resulting registry and role manager are frozen.
type Builder struct {
	config Config
	redis  *redis.Client

	permissions []string
	roles       map[string][]string

	userProvider UserProvider
	mailer       mail.Sender
	auditSink    AuditSink

	built bool
}

func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

// WithPermissions declares every permission name the application uses.
// Order fixes bit assignment, so append new permissions at the end.
func (b *Builder) WithPermissions(perms []string) *Builder {
	b.permissions = perms
	return b
}

// WithRoles maps role names to the permissions they grant. Role names
// are case-insensitive.
func (b *Builder) WithRoles(r map[string][]string) *Builder {
	b.roles = r
	return b
}

func (b *Builder) WithUserProvider(up UserProvider) *Builder {
	b.userProvider = up
	return b
}

// WithMailer overrides the outbound mail transport. Without it, the
// builder wires SMTP from Config.Mail, or a no-op sender when no SMTP
// host is configured.
func (b *Builder) WithMailer(sender mail.Sender) *Builder {
	b.mailer = sender
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	if sink != nil {
		b.config.Audit.Enabled = true
	}
	return b
}

func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(b.permissions) == 0 {
		return nil, errors.New("permissions must be provided")
	}
	if len(b.roles) == 0 {
		return nil, errors.New("roles must be provided")
	}
	if b.userProvider == nil {
		return nil, errors.New("user provider required")
	}

	registry := permission.NewRegistry()
	for _, p := range b.permissions {
		if _, err := registry.Register(p); err != nil {
			return nil, err
		}
	}
	registry.Freeze()

	roleManager := permission.NewRoleManager(registry)
	for roleName, permList := range b.roles {
		if err := roleManager.RegisterRole(roleName, permList); err != nil {
			return nil, err
		}
	}
	roleManager.Freeze()

	engine := &Engine{
		config:       cfg,
		registry:     registry,
		roleManager:  roleManager,
		tokenStore:   stores.NewSecurityTokenStore(b.redis, cfg.Token.RedisPrefix),
		userProvider: b.userProvider,
	}

	if cfg.RateLimit.Enabled {
		engine.rateLimiter = rate.New(b.redis, rate.Config{
			EnableIPThrottle: cfg.RateLimit.EnableIPThrottle,
			MaxLoginAttempts: cfg.RateLimit.MaxLoginAttempts,
			LoginCooldown:    cfg.RateLimit.LoginCooldown,
		})
	}

	if cfg.Audit.Enabled {
		engine.audit = audit.NewDispatcher(audit.Config{
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink)
	}

	if cfg.Metrics.Enabled {
		engine.metrics = metrics.NewSet()
	}

	switch {
	case b.mailer != nil:
		engine.mailer = b.mailer
	case cfg.Mail.SMTPHost != "":
		engine.mailer = mail.NewSMTPSender(
			cfg.Mail.SMTPHost,
			cfg.Mail.SMTPPort,
			cfg.Mail.From,
			cfg.Mail.Username,
			cfg.Mail.Password,
		)
	default:
		engine.mailer = mail.NopSender{}
	}

	ph, err := password.NewHasher(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}
	engine.passwordHash = ph

	jm, err := jwt.NewManager(jwt.Config{
		Secret: cloneBytes(cfg.JWT.Secret),
		Issuer: cfg.JWT.Issuer,
	})
	if err != nil {
		return nil, err
	}
	engine.jwtManager = jm

	b.built = true

	return engine, nil
}
