package lms

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLStore implements Store on database/sql. Placeholders use $n, which both
// the pgx stdlib driver and modernc sqlite accept.
type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	// modernc sqlite reports "UNIQUE constraint failed: table.column"
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func nullableInt64(v int64) any {
	if v == 0 {
		return nil
	}
	return v
}

func nullableStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// ---- Users ----

func (s *SQLStore) CreateUser(ctx context.Context, u *User) error {
	if u.CreatedAt == 0 {
		u.CreatedAt = time.Now().Unix()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id,username,email,password_hash,role,first_name,last_name,created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		u.ID, u.Username, u.Email, u.PasswordHash, u.Role, u.FirstName, u.LastName, u.CreatedAt)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (s *SQLStore) GetUser(ctx context.Context, id string) (User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id,username,email,password_hash,role,first_name,last_name,created_at,last_login
		 FROM users WHERE id=$1`, id))
}

func (s *SQLStore) GetUserByUsername(ctx context.Context, username string) (User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id,username,email,password_hash,role,first_name,last_name,created_at,last_login
		 FROM users WHERE username=$1`, username))
}

func (s *SQLStore) scanUser(row *sql.Row) (User, error) {
	var u User
	var lastLogin sql.NullInt64
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role,
		&u.FirstName, &u.LastName, &u.CreatedAt, &lastLogin)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	u.LastLogin = lastLogin.Int64
	return u, nil
}

func (s *SQLStore) TouchLastLogin(ctx context.Context, id string, at int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET last_login=$1 WHERE id=$2`, at, id)
	return err
}

// ---- Courses ----

func (s *SQLStore) CreateCourse(ctx context.Context, c *Course) error {
	now := time.Now().Unix()
	if c.CreatedAt == 0 {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO courses (id,title,description,category,instructor_id,is_published,duration_weeks,created_at,updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		c.ID, c.Title, c.Description, c.Category, c.InstructorID, c.IsPublished, c.DurationWeeks, c.CreatedAt, c.UpdatedAt)
	return err
}

func (s *SQLStore) GetCourse(ctx context.Context, id string) (Course, error) {
	var c Course
	err := s.db.QueryRowContext(ctx,
		`SELECT id,title,description,category,instructor_id,is_published,duration_weeks,created_at,updated_at
		 FROM courses WHERE id=$1`, id).
		Scan(&c.ID, &c.Title, &c.Description, &c.Category, &c.InstructorID,
			&c.IsPublished, &c.DurationWeeks, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Course{}, ErrNotFound
	}
	return c, err
}

func (s *SQLStore) ListCourses(ctx context.Context, opts CourseListOpts) ([]Course, error) {
	q := `SELECT id,title,description,category,instructor_id,is_published,duration_weeks,created_at,updated_at FROM courses WHERE 1=1`
	args := []any{}
	n := 0
	add := func(clause string, v any) {
		n++
		q += " AND " + strings.Replace(clause, "?", placeholder(n), 1)
		args = append(args, v)
	}
	if opts.PublishedOnly {
		q += " AND is_published=" + boolLit(s.driver, true)
	}
	if opts.InstructorID != "" {
		add("instructor_id=?", opts.InstructorID)
	}
	if opts.Category != "" {
		add("category=?", opts.Category)
	}
	if opts.Search != "" {
		add("title LIKE ?", "%"+opts.Search+"%")
	}
	q += " ORDER BY created_at DESC"
	if opts.Limit > 0 {
		n++
		q += " LIMIT " + placeholder(n)
		args = append(args, opts.Limit)
	}
	if opts.Offset > 0 {
		n++
		q += " OFFSET " + placeholder(n)
		args = append(args, opts.Offset)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Course{}
	for rows.Next() {
		var c Course
		if err := rows.Scan(&c.ID, &c.Title, &c.Description, &c.Category, &c.InstructorID,
			&c.IsPublished, &c.DurationWeeks, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLStore) PublishCourse(ctx context.Context, id string, at int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE courses SET is_published=`+boolLit(s.driver, true)+`, updated_at=$1 WHERE id=$2`, at, id)
	if err != nil {
		return err
	}
	if k, _ := res.RowsAffected(); k == 0 {
		return ErrNotFound
	}
	return nil
}

func placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}

// sqlite stores booleans as 0/1; postgres wants TRUE/FALSE.
func boolLit(driver string, v bool) string {
	if driver == "postgres" {
		if v {
			return "TRUE"
		}
		return "FALSE"
	}
	if v {
		return "1"
	}
	return "0"
}

// ---- Lessons ----

func (s *SQLStore) CreateLesson(ctx context.Context, l *Lesson) error {
	if l.CreatedAt == 0 {
		l.CreatedAt = time.Now().Unix()
	}
	if l.WeekNumber == 0 {
		l.WeekNumber = 1
	}
	// Assign the next order number inside the same transaction so two
	// concurrent creates cannot claim the same slot.
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if l.OrderNum == 0 {
		var maxOrder sql.NullInt64
		if err := tx.QueryRowContext(ctx,
			`SELECT MAX(order_num) FROM lessons WHERE course_id=$1`, l.CourseID).Scan(&maxOrder); err != nil {
			return err
		}
		l.OrderNum = int(maxOrder.Int64) + 1
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO lessons (id,course_id,title,content,video_url,order_num,week_number,created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		l.ID, l.CourseID, l.Title, l.Content, l.VideoURL, l.OrderNum, l.WeekNumber, l.CreatedAt)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLStore) GetLesson(ctx context.Context, id string) (Lesson, error) {
	var l Lesson
	err := s.db.QueryRowContext(ctx,
		`SELECT id,course_id,title,content,video_url,order_num,week_number,created_at
		 FROM lessons WHERE id=$1`, id).
		Scan(&l.ID, &l.CourseID, &l.Title, &l.Content, &l.VideoURL, &l.OrderNum, &l.WeekNumber, &l.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Lesson{}, ErrNotFound
	}
	return l, err
}

func (s *SQLStore) ListLessons(ctx context.Context, courseID string) ([]Lesson, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id,course_id,title,content,video_url,order_num,week_number,created_at
		 FROM lessons WHERE course_id=$1 ORDER BY order_num`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Lesson{}
	for rows.Next() {
		var l Lesson
		if err := rows.Scan(&l.ID, &l.CourseID, &l.Title, &l.Content, &l.VideoURL,
			&l.OrderNum, &l.WeekNumber, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *SQLStore) CountLessons(ctx context.Context, courseID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM lessons WHERE course_id=$1`, courseID).Scan(&n)
	return n, err
}

// ---- Resources ----

func (s *SQLStore) CreateResource(ctx context.Context, r *Resource) error {
	if r.UploadedAt == 0 {
		r.UploadedAt = time.Now().Unix()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO resources (id,lesson_id,title,filename,blob_key,file_type,uploaded_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		r.ID, r.LessonID, r.Title, r.Filename, r.BlobKey, r.FileType, r.UploadedAt)
	return err
}

func (s *SQLStore) GetResource(ctx context.Context, id string) (Resource, error) {
	var r Resource
	err := s.db.QueryRowContext(ctx,
		`SELECT id,lesson_id,title,filename,blob_key,file_type,uploaded_at
		 FROM resources WHERE id=$1`, id).
		Scan(&r.ID, &r.LessonID, &r.Title, &r.Filename, &r.BlobKey, &r.FileType, &r.UploadedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Resource{}, ErrNotFound
	}
	return r, err
}
