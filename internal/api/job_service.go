package api

import (
	"context"
	"errors"
	"os"

	"waveline/internal/queue"
)

const defaultRecentJobs = 20

// JobStore abstracts the queue persistence the job service needs.
type JobStore interface {
	GetJob(ctx context.Context, id int64) (*queue.Job, error)
	List(ctx context.Context, statuses ...queue.Status) ([]*queue.Job, error)
	RemoveJob(ctx context.Context, id int64) (bool, error)
	GetAudioFile(ctx context.Context, id int64) (*queue.AudioFile, error)
	JobCountForAudioFile(ctx context.Context, audioFileID int64) (int, error)
	RemoveAudioFile(ctx context.Context, id int64) (bool, error)
	Stats(ctx context.Context) (map[queue.Status]int, error)
	TypeStats(ctx context.Context) (map[queue.JobType]int, error)
}

// JobService exposes job queries and deletion over the queue store.
type JobService struct {
	store JobStore
}

// NewJobService constructs a JobService around the provided store.
func NewJobService(store JobStore) *JobService {
	if store == nil {
		return nil
	}
	return &JobService{store: store}
}

// List returns jobs filtered by status, newest first.
func (s *JobService) List(ctx context.Context, statuses ...queue.Status) ([]JobView, error) {
	jobs, err := s.store.List(ctx, statuses...)
	if err != nil {
		return nil, err
	}
	return FromJobs(jobs), nil
}

// Describe fetches a single job, or nil when it does not exist.
func (s *JobService) Describe(ctx context.Context, id int64) (*JobView, error) {
	job, err := s.store.GetJob(ctx, id)
	if err != nil || job == nil {
		return nil, err
	}
	view := FromJob(job)
	return &view, nil
}

// DescribeFile fetches a single upload record, or nil when it does not exist.
func (s *JobService) DescribeFile(ctx context.Context, id int64) (*AudioFileView, error) {
	file, err := s.store.GetAudioFile(ctx, id)
	if err != nil || file == nil {
		return nil, err
	}
	view := FromAudioFile(file)
	return &view, nil
}

// Visualization aggregates per-status and per-type counts plus recent jobs.
func (s *JobService) Visualization(ctx context.Context) (VisualizationResponse, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return VisualizationResponse{}, err
	}
	typeStats, err := s.store.TypeStats(ctx)
	if err != nil {
		return VisualizationResponse{}, err
	}
	jobs, err := s.store.List(ctx)
	if err != nil {
		return VisualizationResponse{}, err
	}
	if len(jobs) > defaultRecentJobs {
		jobs = jobs[:defaultRecentJobs]
	}

	resp := VisualizationResponse{
		StatusCounts: make(map[string]int, len(stats)),
		TypeCounts:   make(map[string]int, len(typeStats)),
		RecentJobs:   FromJobs(jobs),
	}
	for _, status := range queue.AllStatuses() {
		resp.StatusCounts[string(status)] = stats[status]
		resp.Total += stats[status]
	}
	for _, jt := range queue.AllJobTypes() {
		resp.TypeCounts[string(jt)] = typeStats[jt]
	}
	return resp, nil
}

// Remove deletes a job together with its output file. When no sibling job
// references the upload afterwards, the upload file and its row are removed
// as well. The first return reports whether the job existed, the second
// whether the upload was removed with it.
func (s *JobService) Remove(ctx context.Context, id int64) (bool, bool, error) {
	job, err := s.store.GetJob(ctx, id)
	if err != nil {
		return false, false, err
	}
	if job == nil {
		return false, false, nil
	}

	removed, err := s.store.RemoveJob(ctx, id)
	if err != nil {
		return false, false, err
	}
	if !removed {
		return false, false, nil
	}
	if job.OutputPath != "" {
		if err := os.Remove(job.OutputPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return true, false, err
		}
	}

	count, err := s.store.JobCountForAudioFile(ctx, job.AudioFileID)
	if err != nil {
		return true, false, err
	}
	if count > 0 {
		return true, false, nil
	}

	file, err := s.store.GetAudioFile(ctx, job.AudioFileID)
	if err != nil {
		return true, false, err
	}
	if file == nil {
		return true, false, nil
	}
	if err := os.Remove(file.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return true, false, err
	}
	if _, err := s.store.RemoveAudioFile(ctx, file.ID); err != nil {
		return true, false, err
	}
	return true, true, nil
}
