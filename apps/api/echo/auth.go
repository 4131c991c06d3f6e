package echoapi

import (
	"context"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/cohort/core"
	"github.com/trezcool/cohort/core/member"
)

var (
	contextTokenKey  = "memberToken"
	contextMemberKey = "member"

	nowFunc = time.Now // mockable
)

// Claims represents the authorization claims transmitted via a JWT.
// Role and scope are informative only: permissions are checked against the stored member.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64       `json:"oriat,omitempty"`
	Username     string      `json:"username,omitempty"`
	Email        string      `json:"email,omitempty"`
	Role         member.Role `json:"role"`
	Campus       string      `json:"campus,omitempty"`
	Floor        int         `json:"floor,omitempty"`
}

func jwtConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(Claims),
	}
}

// NewClaims returns the claims of m. origIat keeps the original issuing time of refreshed tokens.
func NewClaims(conf *core.Config, m member.Member, origIat ...int64) *Claims {
	now := nowFunc()
	nownix := now.Unix()

	oriat := nownix
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   m.ID,
			Audience:  "Cohort",
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Username:     m.Username,
		Email:        m.Email,
		Role:         m.Role,
		Campus:       m.Campus,
		Floor:        m.Floor,
	}
}

// GenerateToken generates a signed JWT token string representing the member Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(middleware.AlgorithmHS256)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func authenticate(ctx context.Context, conf *core.Config, svc *member.Service, uname, pwd string) (*Claims, error) {
	m, err := svc.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		if errors.Cause(err) == member.ErrNotFound {
			return nil, errAuthenticationFailed
		}
		return nil, errors.Wrap(err, "finding member by username or email")
	}
	if err = m.CheckPassword(pwd); err != nil {
		return nil, errAuthenticationFailed
	}
	if !m.IsActive {
		return nil, errAccountDeactivated
	}
	m, err = svc.SetLastLogin(ctx, m)
	if err != nil {
		return nil, errors.Wrap(err, "setting lastLogin")
	}
	return NewClaims(conf, m), nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// getContextMember returns the authenticated member, loaded once per request.
func getContextMember(ctx echo.Context, svc *member.Service) (member.Member, error) {
	if m, ok := ctx.Get(contextMemberKey).(member.Member); ok {
		return m, nil
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return member.Member{}, errors.Wrap(err, "getting context claims")
	}
	m, err := svc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		if errors.Cause(err) == member.ErrNotFound {
			return member.Member{}, errUnauthorized
		}
		return member.Member{}, errors.Wrap(err, "finding member by ID")
	}
	if !m.IsActive {
		return member.Member{}, errAccountDeactivated
	}
	ctx.Set(contextMemberKey, m)
	return m, nil
}

func refreshToken(ctx echo.Context, conf *core.Config, svc *member.Service) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}

	m, err := getContextMember(ctx, svc)
	if err != nil {
		return "", errors.Wrap(err, "getting context member")
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(conf.Server.JWTRefreshExpirationDelta)
	if nowFunc().After(expTime) {
		return "", errRefreshExpired
	}

	token, err := GenerateToken(conf, NewClaims(conf, m, claims.OrigIssuedAt))
	return token, errors.Wrap(err, "generating token")
}
