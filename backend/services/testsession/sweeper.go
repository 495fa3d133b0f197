package testsession

import (
	"context"

	"testengine/backend/models"
)

// ExpireStaleSessions closes every live session whose deadline plus grace
// window has passed, scoring each as TIMEOUT. It returns how many sessions
// it closed; sessions closed concurrently by their owner are skipped.
func (s *Service) ExpireStaleSessions(ctx context.Context) (int, error) {
	cutoff := s.clock().Add(-s.grace)

	var stale []models.ExamSession
	if err := s.db.WithContext(ctx).
		Where("status IN ? AND expires_at < ?", models.ActiveStatuses, cutoff).
		Order("expires_at").
		Find(&stale).Error; err != nil {
		return 0, internal("list stale sessions", err)
	}

	defs := make(map[uint]*TestDefinition)
	closed := 0
	for i := range stale {
		if err := ctx.Err(); err != nil {
			return closed, err
		}
		sess := &stale[i]
		def, ok := defs[sess.TestID]
		if !ok {
			var err error
			def, err = s.defs.GetTestDefinition(ctx, sess.TestID)
			if err != nil {
				s.log.Printf("sweep: skip session %s: %v", sess.Token, err)
				continue
			}
			defs[sess.TestID] = def
		}
		done, err := s.expire(ctx, def, sess)
		if err != nil {
			s.log.Printf("sweep: expire session %s: %v", sess.Token, err)
			continue
		}
		if done {
			closed++
		}
	}
	if closed > 0 {
		s.log.Printf("sweep: closed %d stale sessions", closed)
	}
	return closed, nil
}
