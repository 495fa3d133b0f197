// Package testsession is the timed test-taking engine: it starts exam
// sessions, serves questions without the answer key, records scored
// answers under a deadline and computes results.
//
// The engine never reads the caller from a request context: every
// operation receives the student id explicitly.
package testsession

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Options struct {
	Definitions  DefinitionStore
	Questions    QuestionBank
	Entitlements EntitlementChecker
	Users        UserDirectory
	Publisher    Publisher
	Logger       *log.Logger

	// AnswerGrace is how long after expiresAt answers are still accepted
	// and a submit still counts as COMPLETED rather than TIMEOUT.
	AnswerGrace time.Duration

	Now      func() time.Time
	NewToken func() string
}

type Service struct {
	db    *gorm.DB
	defs  DefinitionStore
	bank  QuestionBank
	ents  EntitlementChecker
	users UserDirectory
	pub   Publisher
	log   *log.Logger
	grace time.Duration
	now   func() time.Time
	token func() string
}

func NewService(db *gorm.DB, opts Options) *Service {
	s := &Service{
		db:    db,
		defs:  opts.Definitions,
		bank:  opts.Questions,
		ents:  opts.Entitlements,
		users: opts.Users,
		pub:   opts.Publisher,
		log:   opts.Logger,
		grace: opts.AnswerGrace,
		now:   opts.Now,
		token: opts.NewToken,
	}
	if s.pub == nil {
		s.pub = NopPublisher{}
	}
	if s.log == nil {
		s.log = log.New(os.Stdout, "[testsession] ", log.LstdFlags|log.LUTC)
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.token == nil {
		s.token = uuid.NewString
	}
	return s
}

func (s *Service) clock() time.Time {
	return s.now().UTC()
}

func (s *Service) publish(ctx context.Context, key string, ev SessionEvent) {
	if err := s.pub.Publish(ctx, key, ev); err != nil {
		s.log.Printf("publish %s session=%s: %v", key, ev.SessionToken, err)
	}
}
