package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrPersonNotFound     = errors.New("person not found")
	ErrRoleNotFound       = errors.New("role not found")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrNationalCodeTaken  = errors.New("national code already registered")
)

type Service struct {
	db         *sql.DB
	jwtSecret  []byte
	jwtTTL     time.Duration
	bcryptCost int
}

type ServiceConfig struct {
	JWTSecret  string
	JWTTTL     time.Duration
	BcryptCost int
}

// User is the authenticated principal attached to request contexts.
type User struct {
	ID       int64    `json:"id"`
	Username string   `json:"username"`
	PersonID int64    `json:"person_id"`
	FullName string   `json:"full_name"`
	Roles    []string `json:"roles"`
}

type RegisterInput struct {
	Username     string
	Password     string
	FirstName    string
	LastName     string
	NationalCode string
	Role         string
}

type PersonRecord struct {
	ID           int64     `json:"id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	NationalCode string    `json:"national_code"`
	Username     string    `json:"username"`
	Roles        []string  `json:"roles"`
	CreatedAt    time.Time `json:"created_at"`
}

func NewService(db *sql.DB, cfg ServiceConfig) *Service {
	if cfg.JWTTTL <= 0 {
		cfg.JWTTTL = 24 * time.Hour
	}
	if cfg.BcryptCost <= 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		db:         db,
		jwtSecret:  []byte(cfg.JWTSecret),
		jwtTTL:     cfg.JWTTTL,
		bcryptCost: cfg.BcryptCost,
	}
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*PersonRecord, error) {
	username := strings.ToLower(strings.TrimSpace(in.Username))
	firstName := strings.TrimSpace(in.FirstName)
	lastName := strings.TrimSpace(in.LastName)
	nationalCode := strings.TrimSpace(in.NationalCode)
	role := strings.ToUpper(strings.TrimSpace(in.Role))

	if username == "" || firstName == "" || lastName == "" || nationalCode == "" {
		return nil, errors.New("username, first_name, last_name, national_code are required")
	}
	if len(in.Password) < 8 {
		return nil, errors.New("password must be at least 8 characters")
	}
	if role != "" && !isValidRole(role) {
		return nil, ErrRoleNotFound
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin register tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var taken bool
	if err := tx.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM accounts WHERE username = $1)
	`, username).Scan(&taken); err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if taken {
		return nil, ErrUsernameTaken
	}
	if err := tx.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM persons WHERE national_code = $1)
	`, nationalCode).Scan(&taken); err != nil {
		return nil, fmt.Errorf("check national code: %w", err)
	}
	if taken {
		return nil, ErrNationalCodeTaken
	}

	var out PersonRecord
	err = tx.QueryRowContext(ctx, `
		INSERT INTO persons (first_name, last_name, national_code, created_at)
		VALUES ($1, $2, $3, now())
		RETURNING id, first_name, last_name, national_code, created_at
	`, firstName, lastName, nationalCode).Scan(
		&out.ID, &out.FirstName, &out.LastName, &out.NationalCode, &out.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert person: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO accounts (username, password_hash, person_id, is_active, created_at)
		VALUES ($1, $2, $3, TRUE, now())
	`, username, string(hash), out.ID); err != nil {
		return nil, fmt.Errorf("insert account: %w", err)
	}
	out.Username = username

	if role != "" {
		if err := assignRoleTx(ctx, tx, out.ID, role); err != nil {
			return nil, err
		}
		out.Roles = []string{role}
	} else {
		out.Roles = []string{}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit register: %w", err)
	}
	return &out, nil
}

func (s *Service) Authenticate(ctx context.Context, username, password string) (*User, string, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || password == "" {
		return nil, "", ErrInvalidCredentials
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT a.id, a.username, a.password_hash, a.person_id, p.first_name || ' ' || p.last_name
		FROM accounts a
		JOIN persons p ON p.id = a.person_id
		WHERE a.username = $1 AND a.is_active = TRUE
		LIMIT 1
	`, username)

	var u User
	var passwordHash string
	if err := row.Scan(&u.ID, &u.Username, &passwordHash, &u.PersonID, &u.FullName); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("query account: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	roles, err := s.loadRoles(ctx, u.PersonID)
	if err != nil {
		return nil, "", err
	}
	u.Roles = roles

	token, err := s.issueToken(&u)
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}
	return &u, token, nil
}

// GetTokenUser verifies a bearer token and reloads the principal from the
// database so role changes and deactivation take effect immediately.
func (s *Service) GetTokenUser(ctx context.Context, token string) (*User, error) {
	accountID, err := s.verifyToken(token)
	if err != nil {
		return nil, ErrUnauthorized
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT a.id, a.username, a.person_id, p.first_name || ' ' || p.last_name
		FROM accounts a
		JOIN persons p ON p.id = a.person_id
		WHERE a.id = $1 AND a.is_active = TRUE
		LIMIT 1
	`, accountID)

	var u User
	if err := row.Scan(&u.ID, &u.Username, &u.PersonID, &u.FullName); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("query token user: %w", err)
	}

	roles, err := s.loadRoles(ctx, u.PersonID)
	if err != nil {
		return nil, err
	}
	u.Roles = roles
	return &u, nil
}

func (s *Service) AssignRole(ctx context.Context, personID int64, roleName string) error {
	roleName = strings.ToUpper(strings.TrimSpace(roleName))
	if !isValidRole(roleName) {
		return ErrRoleNotFound
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin assign role tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists bool
	if err := tx.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM persons WHERE id = $1)
	`, personID).Scan(&exists); err != nil {
		return fmt.Errorf("check person: %w", err)
	}
	if !exists {
		return ErrPersonNotFound
	}

	if err := assignRoleTx(ctx, tx, personID, roleName); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit assign role: %w", err)
	}
	return nil
}

func assignRoleTx(ctx context.Context, tx *sql.Tx, personID int64, roleName string) error {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO person_roles (person_id, role_id)
		SELECT $1, id FROM roles WHERE name = $2
		ON CONFLICT (person_id, role_id) DO NOTHING
	`, personID, roleName)
	if err != nil {
		return fmt.Errorf("assign role: %w", err)
	}
	// Zero rows with no conflict means the role name did not resolve.
	if affected, _ := res.RowsAffected(); affected == 0 {
		var known bool
		if err := tx.QueryRowContext(ctx, `
			SELECT EXISTS(SELECT 1 FROM roles WHERE name = $1)
		`, roleName).Scan(&known); err != nil {
			return fmt.Errorf("check role: %w", err)
		}
		if !known {
			return ErrRoleNotFound
		}
	}
	return nil
}

func (s *Service) ListPersons(ctx context.Context, role, q string, limit, offset int) ([]PersonRecord, error) {
	role = strings.ToUpper(strings.TrimSpace(role))
	if role != "" && !isValidRole(role) {
		return nil, ErrRoleNotFound
	}
	q = strings.TrimSpace(q)
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT
			p.id,
			p.first_name,
			p.last_name,
			p.national_code,
			COALESCE(a.username, ''),
			COALESCE(array_to_string(array_agg(r.name ORDER BY r.name) FILTER (WHERE r.name IS NOT NULL), ','), ''),
			p.created_at
		FROM persons p
		LEFT JOIN accounts a ON a.person_id = p.id
		LEFT JOIN person_roles pr ON pr.person_id = p.id
		LEFT JOIN roles r ON r.id = pr.role_id
		WHERE ($1 = '' OR EXISTS (
			SELECT 1
			FROM person_roles pr2
			JOIN roles r2 ON r2.id = pr2.role_id
			WHERE pr2.person_id = p.id AND r2.name = $1
		))
		  AND (
			$2 = ''
			OR p.first_name ILIKE '%' || $2 || '%'
			OR p.last_name ILIKE '%' || $2 || '%'
			OR p.national_code ILIKE '%' || $2 || '%'
			OR COALESCE(a.username,'') ILIKE '%' || $2 || '%'
		  )
		GROUP BY p.id, p.first_name, p.last_name, p.national_code, a.username, p.created_at
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT $3
		OFFSET $4
	`, role, q, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list persons: %w", err)
	}
	defer rows.Close()

	out := make([]PersonRecord, 0, limit)
	for rows.Next() {
		var rec PersonRecord
		var rolesCSV string
		if err := rows.Scan(&rec.ID, &rec.FirstName, &rec.LastName, &rec.NationalCode, &rec.Username, &rolesCSV, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan person: %w", err)
		}
		rec.Roles = splitRoles(rolesCSV)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate persons: %w", err)
	}
	return out, nil
}

func (s *Service) loadRoles(ctx context.Context, personID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.name
		FROM person_roles pr
		JOIN roles r ON r.id = pr.role_id
		WHERE pr.person_id = $1
		ORDER BY r.name
	`, personID)
	if err != nil {
		return nil, fmt.Errorf("load roles: %w", err)
	}
	defer rows.Close()

	roles := make([]string, 0, 2)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		roles = append(roles, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate roles: %w", err)
	}
	return roles, nil
}

func isValidRole(role string) bool {
	switch role {
	case "ADMIN", "TEACHER", "STUDENT":
		return true
	default:
		return false
	}
}

func splitRoles(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return []string{}
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}
