package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

var (
	// ErrNotFound 查询不到记录
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate 违反唯一约束
	ErrDuplicate = errors.New("duplicate key")
)

// Store 工作单元：持有同一个 *gorm.DB（普通连接或事务）下的全部仓储。
// 写操作由调用方通过 Transaction 控制提交/回滚边界，服务层只接收已绑定好的 Store。
type Store struct {
	db   *gorm.DB
	opts []Option

	Institutions  InstitutionRepository
	Users         UserRepository
	Participants  ParticipantRepository
	Seasons       SeasonRepository
	Events        EventRepository
	Registrations RegistrationRepository
	Bibs          BibRepository
	Results       ResultRepository
	Stats         StatsRepository
}

// Option 创建 Store 时对仓储的替换/包装，Transaction 内的 Store 同样生效
type Option func(*Store)

// WrapBibs 包装号码布仓储，如注入故障或统计
func WrapBibs(wrap func(BibRepository) BibRepository) Option {
	return func(s *Store) {
		s.Bibs = wrap(s.Bibs)
	}
}

// NewStore 创建 Store
func NewStore(db *gorm.DB, opts ...Option) *Store {
	s := &Store{
		db:            db,
		opts:          opts,
		Institutions:  &institutionRepository{db: db},
		Users:         &userRepository{db: db},
		Participants:  &participantRepository{db: db},
		Seasons:       &seasonRepository{db: db},
		Events:        &eventRepository{db: db},
		Registrations: &registrationRepository{db: db},
		Bibs:          &bibRepository{db: db},
		Results:       &resultRepository{db: db},
		Stats:         &statsRepository{db: db},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB 底层连接
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Transaction 在一个数据库事务内执行 fn；fn 返回错误或 panic 时整体回滚
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx, s.opts...))
	})
}

// translate 把 gorm 错误归一为仓储错误
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case IsUniqueViolation(err):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}

// IsUniqueViolation 唯一约束冲突（TranslateError 未生效时按驱动错误文本兜底）
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || errors.Is(err, ErrDuplicate) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "SQLSTATE 23505")
}
