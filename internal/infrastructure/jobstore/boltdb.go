package jobstore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/fastygo/reminders/domain"
	"github.com/fastygo/reminders/repository"
)

const defaultBucket = "reminder_jobs"

// Store wraps BoltDB to persist reminder jobs. Each job is stored under its dedup key,
// so there is at most one record per (user, task).
type Store struct {
	db     *bolt.DB
	bucket []byte
	now    func() time.Time
}

// Open initializes the BoltDB file and ensures the bucket exists.
func Open(path string, bucket string) (*Store, error) {
	if bucket == "" {
		bucket = defaultBucket
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucket))
		return err
	}); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{
		db:     db,
		bucket: []byte(bucket),
		now:    time.Now,
	}, nil
}

var _ repository.JobRepository = (*Store)(nil)

func (s *Store) Enqueue(ctx context.Context, job *domain.ReminderJob) (bool, error) {
	if err := s.ready(ctx); err != nil {
		return false, err
	}
	if job == nil || job.Key == "" {
		return false, domain.ErrInvalidPayload
	}

	enqueued := false
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if raw := b.Get([]byte(job.Key)); raw != nil {
			var existing domain.ReminderJob
			if err := json.Unmarshal(raw, &existing); err == nil && existing.Status.IsPending() {
				return nil
			}
		}

		now := s.now().UTC()
		job.Status = domain.JobQueued
		job.Attempts = 0
		job.LastError = ""
		job.EnqueuedAt = now
		job.UpdatedAt = now
		if err := put(b, job); err != nil {
			return err
		}
		enqueued = true
		return nil
	})
	if err != nil {
		return false, domain.Unavailable("job store", err)
	}
	return enqueued, nil
}

func (s *Store) Claim(ctx context.Context, limit int) ([]domain.ReminderJob, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}

	var claimed []domain.ReminderJob
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		queued := scan(b, func(j *domain.ReminderJob) bool { return j.Status == domain.JobQueued })
		sortByEnqueued(queued)
		if len(queued) > limit {
			queued = queued[:limit]
		}

		now := s.now().UTC()
		for i := range queued {
			queued[i].Status = domain.JobActive
			queued[i].Attempts++
			queued[i].UpdatedAt = now
			if err := put(b, &queued[i]); err != nil {
				return err
			}
		}
		claimed = queued
		return nil
	})
	if err != nil {
		return nil, domain.Unavailable("job store", err)
	}
	return claimed, nil
}

func (s *Store) Save(ctx context.Context, job *domain.ReminderJob) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if job == nil || job.Key == "" || !job.Status.IsValid() {
		return domain.ErrInvalidPayload
	}
	job.UpdatedAt = s.now().UTC()
	if err := s.db.Update(func(tx *bolt.Tx) error {
		return put(tx.Bucket(s.bucket), job)
	}); err != nil {
		return domain.Unavailable("job store", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) (*domain.ReminderJob, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	var job *domain.ReminderJob
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(s.bucket).Get([]byte(key))
		if raw == nil {
			return nil
		}
		var decoded domain.ReminderJob
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return domain.WrapError(domain.ErrCodeMalformedRecord, "malformed job "+key, err)
		}
		job = &decoded
		return nil
	})
	if err != nil {
		if domain.IsDomainError(err, domain.ErrCodeMalformedRecord) {
			return nil, err
		}
		return nil, domain.Unavailable("job store", err)
	}
	if job == nil {
		return nil, domain.ErrJobNotFound
	}
	return job, nil
}

// List returns the jobs matching filter, oldest first.
func (s *Store) List(ctx context.Context, filter repository.JobFilter) ([]domain.ReminderJob, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	var jobs []domain.ReminderJob
	err := s.db.View(func(tx *bolt.Tx) error {
		jobs = scan(tx.Bucket(s.bucket), func(j *domain.ReminderJob) bool {
			return (filter.Status == "" || j.Status == filter.Status) &&
				(filter.UserID == "" || j.UserID == filter.UserID)
		})
		return nil
	})
	if err != nil {
		return nil, domain.Unavailable("job store", err)
	}
	sortByEnqueued(jobs)
	return jobs, nil
}

func (s *Store) DeletePending(ctx context.Context, key string) (bool, error) {
	if err := s.ready(ctx); err != nil {
		return false, err
	}
	deleted := false
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		raw := b.Get([]byte(key))
		if raw == nil {
			return nil
		}
		var job domain.ReminderJob
		if err := json.Unmarshal(raw, &job); err == nil && !job.Status.IsPending() {
			return nil
		}
		if err := b.Delete([]byte(key)); err != nil {
			return err
		}
		deleted = true
		return nil
	})
	if err != nil {
		return false, domain.Unavailable("job store", err)
	}
	return deleted, nil
}

func (s *Store) Requeue(ctx context.Context) (int, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	count := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		active := scan(b, func(j *domain.ReminderJob) bool { return j.Status == domain.JobActive })
		now := s.now().UTC()
		for i := range active {
			active[i].Status = domain.JobQueued
			active[i].UpdatedAt = now
			if err := put(b, &active[i]); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, domain.Unavailable("job store", err)
	}
	return count, nil
}

// PurgeCompleted removes completed jobs last touched before olderThan. Failed jobs are kept
// for inspection.
func (s *Store) PurgeCompleted(ctx context.Context, olderThan time.Time) (int, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	removed := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		stale := scan(b, func(j *domain.ReminderJob) bool {
			return j.Status == domain.JobCompleted && j.UpdatedAt.Before(olderThan)
		})
		for _, job := range stale {
			if err := b.Delete([]byte(job.Key)); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return 0, domain.Unavailable("job store", err)
	}
	return removed, nil
}

// Size returns the number of stored jobs.
func (s *Store) Size(ctx context.Context) (int, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	var count int
	err := s.db.View(func(tx *bolt.Tx) error {
		count = tx.Bucket(s.bucket).Stats().KeyN
		return nil
	})
	if err != nil {
		return 0, domain.Unavailable("job store", err)
	}
	return count, nil
}

// Close closes the Bolt database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// ready fails fast on a nil store or an expired caller context; bbolt calls are not cancellable.
func (s *Store) ready(ctx context.Context) error {
	if s == nil || s.db == nil {
		return domain.ErrNotInitialized
	}
	if err := ctx.Err(); err != nil {
		return domain.Unavailable("job store", err)
	}
	return nil
}

func put(b *bolt.Bucket, job *domain.ReminderJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return b.Put([]byte(job.Key), payload)
}

func scan(b *bolt.Bucket, keep func(*domain.ReminderJob) bool) []domain.ReminderJob {
	var jobs []domain.ReminderJob
	_ = b.ForEach(func(_, v []byte) error {
		var job domain.ReminderJob
		if err := json.Unmarshal(v, &job); err != nil {
			return nil
		}
		if keep(&job) {
			jobs = append(jobs, job)
		}
		return nil
	})
	return jobs
}

func sortByEnqueued(jobs []domain.ReminderJob) {
	sort.SliceStable(jobs, func(i, j int) bool {
		if jobs[i].EnqueuedAt.Equal(jobs[j].EnqueuedAt) {
			return jobs[i].Key < jobs[j].Key
		}
		return jobs[i].EnqueuedAt.Before(jobs[j].EnqueuedAt)
	})
}
