package lms

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// memoryStore keeps everything under one mutex. Good enough for tests and
// single-node offline use; the serializable unit per operation mirrors the
// SQL store's transactions.
type memoryStore struct {
	mu            sync.Mutex
	users         map[string]User
	courses       map[string]Course
	lessons       map[string]Lesson
	resources     map[string]Resource
	enrollments   map[string]Enrollment // key: userID|courseID
	quizzes       map[string]Quiz
	questions     map[string]Question
	attempts      map[string]QuizAttempt
	progress      map[string]Progress // key: userID|lessonID
	grades        map[string]Grade    // key: attemptID
	announcements map[string]Announcement
	certificates  map[string]Certificate // key: userID|courseID
}

func NewInMemoryStore() Store {
	return &memoryStore{
		users:         map[string]User{},
		courses:       map[string]Course{},
		lessons:       map[string]Lesson{},
		resources:     map[string]Resource{},
		enrollments:   map[string]Enrollment{},
		quizzes:       map[string]Quiz{},
		questions:     map[string]Question{},
		attempts:      map[string]QuizAttempt{},
		progress:      map[string]Progress{},
		grades:        map[string]Grade{},
		announcements: map[string]Announcement{},
		certificates:  map[string]Certificate{},
	}
}

func pairKey(a, b string) string { return a + "|" + b }

// ---- Users ----

func (m *memoryStore) CreateUser(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Username == u.Username || existing.Email == u.Email {
			return ErrConflict
		}
	}
	if u.CreatedAt == 0 {
		u.CreatedAt = time.Now().Unix()
	}
	m.users[u.ID] = *u
	return nil
}

func (m *memoryStore) GetUser(_ context.Context, id string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (m *memoryStore) GetUserByUsername(_ context.Context, username string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (m *memoryStore) TouchLastLogin(_ context.Context, id string, at int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.LastLogin = at
	m.users[id] = u
	return nil
}

// ---- Courses ----

func (m *memoryStore) CreateCourse(_ context.Context, c *Course) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().Unix()
	if c.CreatedAt == 0 {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	m.courses[c.ID] = *c
	return nil
}

func (m *memoryStore) GetCourse(_ context.Context, id string) (Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.courses[id]
	if !ok {
		return Course{}, ErrNotFound
	}
	return c, nil
}

func (m *memoryStore) ListCourses(_ context.Context, opts CourseListOpts) ([]Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Course{}
	for _, c := range m.courses {
		if opts.PublishedOnly && !c.IsPublished {
			continue
		}
		if opts.InstructorID != "" && c.InstructorID != opts.InstructorID {
			continue
		}
		if opts.Category != "" && c.Category != opts.Category {
			continue
		}
		if opts.Search != "" && !strings.Contains(strings.ToLower(c.Title), strings.ToLower(opts.Search)) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return paginate(out, opts.Limit, opts.Offset), nil
}

func paginate[T any](in []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(in) {
			return []T{}
		}
		in = in[offset:]
	}
	if limit > 0 && limit < len(in) {
		in = in[:limit]
	}
	return in
}

func (m *memoryStore) PublishCourse(_ context.Context, id string, at int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.courses[id]
	if !ok {
		return ErrNotFound
	}
	c.IsPublished = true
	c.UpdatedAt = at
	m.courses[id] = c
	return nil
}

// ---- Lessons ----

func (m *memoryStore) CreateLesson(_ context.Context, l *Lesson) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l.CreatedAt == 0 {
		l.CreatedAt = time.Now().Unix()
	}
	if l.WeekNumber == 0 {
		l.WeekNumber = 1
	}
	if l.OrderNum == 0 {
		maxOrder := 0
		for _, other := range m.lessons {
			if other.CourseID == l.CourseID && other.OrderNum > maxOrder {
				maxOrder = other.OrderNum
			}
		}
		l.OrderNum = maxOrder + 1
	} else {
		for _, other := range m.lessons {
			if other.CourseID == l.CourseID && other.OrderNum == l.OrderNum {
				return ErrConflict
			}
		}
	}
	m.lessons[l.ID] = *l
	return nil
}

func (m *memoryStore) GetLesson(_ context.Context, id string) (Lesson, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lessons[id]
	if !ok {
		return Lesson{}, ErrNotFound
	}
	return l, nil
}

func (m *memoryStore) ListLessons(_ context.Context, courseID string) ([]Lesson, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Lesson{}
	for _, l := range m.lessons {
		if l.CourseID == courseID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderNum < out[j].OrderNum })
	return out, nil
}

func (m *memoryStore) CountLessons(_ context.Context, courseID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, l := range m.lessons {
		if l.CourseID == courseID {
			n++
		}
	}
	return n, nil
}

// ---- Resources ----

func (m *memoryStore) CreateResource(_ context.Context, r *Resource) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.UploadedAt == 0 {
		r.UploadedAt = time.Now().Unix()
	}
	m.resources[r.ID] = *r
	return nil
}

func (m *memoryStore) GetResource(_ context.Context, id string) (Resource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.resources[id]
	if !ok {
		return Resource{}, ErrNotFound
	}
	return r, nil
}

// ---- Enrollments ----

func (m *memoryStore) CreateEnrollment(_ context.Context, e *Enrollment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := pairKey(e.UserID, e.CourseID)
	if existing, ok := m.enrollments[k]; ok {
		*e = existing
		return nil
	}
	if e.EnrolledAt == 0 {
		e.EnrolledAt = time.Now().Unix()
	}
	m.enrollments[k] = *e
	return nil
}

func (m *memoryStore) GetEnrollment(_ context.Context, userID, courseID string) (Enrollment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.enrollments[pairKey(userID, courseID)]
	if !ok {
		return Enrollment{}, ErrNotFound
	}
	return e, nil
}

func (m *memoryStore) ListEnrollmentsByUser(_ context.Context, userID string) ([]Enrollment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Enrollment{}
	for _, e := range m.enrollments {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EnrolledAt > out[j].EnrolledAt })
	return out, nil
}

func (m *memoryStore) CountEnrollments(_ context.Context, courseID string, completedOnly bool) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.enrollments {
		if e.CourseID != courseID {
			continue
		}
		if completedOnly && !e.CertificateIssued {
			continue
		}
		n++
	}
	return n, nil
}

func (m *memoryStore) SetEnrollmentProgress(_ context.Context, userID, courseID string, pct float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := pairKey(userID, courseID)
	e, ok := m.enrollments[k]
	if !ok {
		return nil
	}
	e.ProgressPercentage = pct
	m.enrollments[k] = e
	return nil
}

func (m *memoryStore) CompleteEnrollment(_ context.Context, userID, courseID string, at int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := pairKey(userID, courseID)
	e, ok := m.enrollments[k]
	if !ok {
		return ErrNotFound
	}
	e.CompletedAt = at
	e.CertificateIssued = true
	m.enrollments[k] = e
	return nil
}

// ---- Quizzes and questions ----

func (m *memoryStore) CreateQuiz(_ context.Context, q *Quiz) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if q.CreatedAt == 0 {
		q.CreatedAt = time.Now().Unix()
	}
	if q.QuizType == "" {
		q.QuizType = QuizLesson
	}
	m.quizzes[q.ID] = *q
	return nil
}

func (m *memoryStore) GetQuiz(_ context.Context, id string) (Quiz, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quizzes[id]
	if !ok {
		return Quiz{}, ErrNotFound
	}
	return q, nil
}

func (m *memoryStore) ListQuizzes(_ context.Context, courseID string) ([]Quiz, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Quiz{}
	for _, q := range m.quizzes {
		if q.CourseID == courseID {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt < out[j].CreatedAt })
	return out, nil
}

func (m *memoryStore) ListLessonQuizzes(_ context.Context, lessonID string) ([]Quiz, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Quiz{}
	for _, q := range m.quizzes {
		if q.LessonID == lessonID {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt < out[j].CreatedAt })
	return out, nil
}

func (m *memoryStore) CreateQuestion(_ context.Context, q *Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if q.OrderNum == 0 {
		maxOrder := 0
		for _, other := range m.questions {
			if other.QuizID == q.QuizID && other.OrderNum > maxOrder {
				maxOrder = other.OrderNum
			}
		}
		q.OrderNum = maxOrder + 1
	}
	m.questions[q.ID] = *q
	return nil
}

func (m *memoryStore) ListQuestions(_ context.Context, quizID string) ([]Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Question{}
	for _, q := range m.questions {
		if q.QuizID == quizID {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderNum < out[j].OrderNum })
	return out, nil
}

// ---- Attempts ----

func (m *memoryStore) CreateAttempt(_ context.Context, a *QuizAttempt, maxAttempts int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prior := 0
	for _, other := range m.attempts {
		if other.UserID == a.UserID && other.QuizID == a.QuizID {
			prior++
		}
	}
	if maxAttempts > 0 && prior >= maxAttempts {
		return ErrAttemptLimit
	}
	a.AttemptNumber = prior + 1
	now := time.Now().Unix()
	if a.StartedAt == 0 {
		a.StartedAt = now
	}
	if a.SubmittedAt == 0 {
		a.SubmittedAt = now
	}
	m.attempts[a.ID] = *a
	return nil
}

func (m *memoryStore) CountAttempts(_ context.Context, userID, quizID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, a := range m.attempts {
		if a.UserID == userID && a.QuizID == quizID {
			n++
		}
	}
	return n, nil
}

func (m *memoryStore) GetAttempt(_ context.Context, id string) (QuizAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[id]
	if !ok {
		return QuizAttempt{}, ErrNotFound
	}
	return a, nil
}

func (m *memoryStore) ListAttemptsByUser(_ context.Context, userID string) ([]QuizAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []QuizAttempt{}
	for _, a := range m.attempts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sortAttempts(out)
	return out, nil
}

func (m *memoryStore) ListAttemptsByCourse(_ context.Context, courseID string) ([]QuizAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []QuizAttempt{}
	for _, a := range m.attempts {
		q, ok := m.quizzes[a.QuizID]
		if ok && q.CourseID == courseID {
			out = append(out, a)
		}
	}
	sortAttempts(out)
	return out, nil
}

func sortAttempts(out []QuizAttempt) {
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt != out[j].StartedAt {
			return out[i].StartedAt > out[j].StartedAt
		}
		return out[i].ID < out[j].ID
	})
}

// ---- Progress ----

func (m *memoryStore) UpsertProgressAccess(_ context.Context, userID, lessonID string, at int64) (Progress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := pairKey(userID, lessonID)
	p, ok := m.progress[k]
	if !ok {
		p = Progress{ID: newID(), UserID: userID, LessonID: lessonID}
	}
	p.LastAccessed = at
	m.progress[k] = p
	return p, nil
}

func (m *memoryStore) MarkLessonComplete(_ context.Context, userID, lessonID string, at int64) (Progress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := pairKey(userID, lessonID)
	p, ok := m.progress[k]
	if !ok {
		p = Progress{ID: newID(), UserID: userID, LessonID: lessonID}
	}
	if !p.Completed {
		p.Completed = true
		p.CompletionDate = at
	}
	p.LastAccessed = at
	m.progress[k] = p
	return p, nil
}

func (m *memoryStore) AddProgressTime(_ context.Context, userID, lessonID string, minutes int, at int64) (Progress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := pairKey(userID, lessonID)
	p, ok := m.progress[k]
	if !ok {
		p = Progress{ID: newID(), UserID: userID, LessonID: lessonID}
	}
	p.TimeSpent += minutes
	p.LastAccessed = at
	m.progress[k] = p
	return p, nil
}

func (m *memoryStore) MapProgress(_ context.Context, userID, courseID string) (map[string]Progress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]Progress{}
	for _, p := range m.progress {
		if p.UserID != userID {
			continue
		}
		l, ok := m.lessons[p.LessonID]
		if ok && l.CourseID == courseID {
			out[p.LessonID] = p
		}
	}
	return out, nil
}

func (m *memoryStore) CountCompletedLessons(_ context.Context, userID, courseID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, p := range m.progress {
		if p.UserID != userID || !p.Completed {
			continue
		}
		l, ok := m.lessons[p.LessonID]
		if ok && l.CourseID == courseID {
			n++
		}
	}
	return n, nil
}

// ---- Grades ----

func (m *memoryStore) UpsertGrade(_ context.Context, g *Grade) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g.GradedAt == 0 {
		g.GradedAt = time.Now().Unix()
	}
	if existing, ok := m.grades[g.AttemptID]; ok {
		g.ID = existing.ID
	}
	m.grades[g.AttemptID] = *g
	return nil
}

func (m *memoryStore) ListGradesByCourse(_ context.Context, courseID string) ([]Grade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Grade{}
	for _, g := range m.grades {
		a, ok := m.attempts[g.AttemptID]
		if !ok {
			continue
		}
		q, ok := m.quizzes[a.QuizID]
		if ok && q.CourseID == courseID {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GradedAt > out[j].GradedAt })
	return out, nil
}

// ---- Announcements ----

func (m *memoryStore) CreateAnnouncement(_ context.Context, a *Announcement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.CreatedAt == 0 {
		a.CreatedAt = time.Now().Unix()
	}
	m.announcements[a.ID] = *a
	return nil
}

func (m *memoryStore) ListAnnouncements(_ context.Context, courseID string) ([]Announcement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Announcement{}
	for _, a := range m.announcements {
		if a.CourseID == courseID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return out, nil
}

// ---- Certificates ----

func (m *memoryStore) CreateCertificate(_ context.Context, c *Certificate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := pairKey(c.UserID, c.CourseID)
	if _, ok := m.certificates[k]; ok {
		return ErrConflict
	}
	if c.IssuedAt == 0 {
		c.IssuedAt = time.Now().Unix()
	}
	m.certificates[k] = *c
	return nil
}

func (m *memoryStore) GetCertificate(_ context.Context, userID, courseID string) (Certificate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.certificates[pairKey(userID, courseID)]
	if !ok {
		return Certificate{}, ErrNotFound
	}
	return c, nil
}
