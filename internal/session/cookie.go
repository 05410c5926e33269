package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MinSecretLength is the shortest HMAC secret NewCookieProvider accepts.
const MinSecretLength = 32

const cookieIssuer = "drivehub"

// CookieOptions controls the attributes of cookies set by providers.
type CookieOptions struct {
	Secure bool
	Path   string        // default "/"
	TTL    time.Duration // 0 = browser-session cookie, record never expires
}

func (o CookieOptions) path() string {
	if o.Path == "" {
		return "/"
	}
	return o.Path
}

func (o CookieOptions) cookie(name, value string) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     o.path(),
		HttpOnly: true,
		Secure:   o.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if o.TTL > 0 {
		c.MaxAge = int(o.TTL.Seconds())
	}
	return c
}

func (o CookieOptions) expired(name string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     o.path(),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   o.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// recordClaims carries the session record inside a signed token.
type recordClaims struct {
	Record json.RawMessage `json:"rec"`
	jwt.RegisteredClaims
}

// CookieProvider keeps the whole record client-side in the "user" cookie,
// signed with HS256 so it cannot be forged or edited.
type CookieProvider struct {
	secret []byte
	opts   CookieOptions
	now    func() time.Time
}

// NewCookieProvider returns a provider signing with secret.
func NewCookieProvider(secret []byte, opts CookieOptions) (*CookieProvider, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("session secret must be at least %d bytes, got %d", MinSecretLength, len(secret))
	}
	return &CookieProvider{secret: secret, opts: opts, now: time.Now}, nil
}

func (p *CookieProvider) Open(w http.ResponseWriter, r *http.Request) Backend {
	return &cookieBackend{p: p, w: w, r: r}
}

func (p *CookieProvider) sign(record []byte) (string, error) {
	now := p.now()
	claims := recordClaims{
		Record: json.RawMessage(record),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   cookieIssuer,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if p.opts.TTL > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(p.opts.TTL))
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(p.secret)
	if err != nil {
		return "", fmt.Errorf("sign session cookie: %w", err)
	}
	return signed, nil
}

func (p *CookieProvider) verify(value string) ([]byte, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(cookieIssuer),
		jwt.WithTimeFunc(p.now),
	)
	var claims recordClaims
	_, err := parser.ParseWithClaims(value, &claims, func(*jwt.Token) (any, error) {
		return p.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("verify session cookie: %w", err)
	}
	if len(claims.Record) == 0 {
		return nil, errors.New("verify session cookie: empty record")
	}
	return claims.Record, nil
}

// cookieBackend binds a CookieProvider to one request/response pair. Writes
// made during the exchange are visible to later Loads in the same exchange.
type cookieBackend struct {
	p *CookieProvider
	w http.ResponseWriter
	r *http.Request

	written bool
	pending []byte // nil after Delete
}

func (b *cookieBackend) Load(context.Context) ([]byte, error) {
	if b.written {
		if b.pending == nil {
			return nil, ErrNoRecord
		}
		return b.pending, nil
	}
	c, err := b.r.Cookie(RecordKey)
	if err != nil || c.Value == "" {
		return nil, ErrNoRecord
	}
	return b.p.verify(c.Value)
}

func (b *cookieBackend) Save(_ context.Context, record []byte) error {
	signed, err := b.p.sign(record)
	if err != nil {
		return err
	}
	http.SetCookie(b.w, b.p.opts.cookie(RecordKey, signed))
	b.written, b.pending = true, append([]byte(nil), record...)
	return nil
}

func (b *cookieBackend) Delete(context.Context) error {
	http.SetCookie(b.w, b.p.opts.expired(RecordKey))
	b.written, b.pending = true, nil
	return nil
}
