package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

var (
	ErrNotFound            = errors.New("record not found")
	ErrAccessDenied        = errors.New("access denied")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrVersionNotFound     = errors.New("version not found")
)

const defaultProjectTitle = "Untitled Project"

// Store is the record-level gateway to profiles, projects, versions and AI logs.
// It performs single-statement reads and writes only; callers compose them.
type Store struct {
	db *gorm.DB
}

// NewStore wraps an open gorm handle.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Page describes a 1-based pagination window.
type Page struct {
	Number int
	Limit  int
}

// NewPage clamps user supplied values into a usable window.
func NewPage(number, limit, defaultLimit, maxLimit int) Page {
	if number < 1 {
		number = 1
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if maxLimit > 0 && limit > maxLimit {
		limit = maxLimit
	}
	return Page{Number: number, Limit: limit}
}

// Offset returns the number of rows to skip.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Limit
}

// ProjectUpdate carries the mutable project columns; nil fields are left untouched.
type ProjectUpdate struct {
	Title        *string
	HTMLContent  *string
	IsPublic     *bool
	ThumbnailURL *string
}

func (u ProjectUpdate) columns() map[string]any {
	cols := map[string]any{}
	if u.Title != nil {
		cols["title"] = *u.Title
	}
	if u.HTMLContent != nil {
		cols["html_content"] = *u.HTMLContent
	}
	if u.IsPublic != nil {
		cols["is_public"] = *u.IsPublic
	}
	if u.ThumbnailURL != nil {
		cols["thumbnail_url"] = *u.ThumbnailURL
	}
	return cols
}

func notFound(err error, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return err
}

// GetProfile loads a profile by id.
func (s *Store) GetProfile(ctx context.Context, id string) (*Profile, error) {
	var profile Profile
	if err := s.db.WithContext(ctx).First(&profile, "id = ?", id).Error; err != nil {
		return nil, notFound(err, ErrNotFound)
	}
	return &profile, nil
}

// UpsertProfile creates the profile with defaultCredits on first sight, otherwise
// refreshes the non-empty display fields.
func (s *Store) UpsertProfile(ctx context.Context, id, fullName, avatarURL string, defaultCredits int) (*Profile, error) {
	profile, err := s.GetProfile(ctx, id)
	switch {
	case errors.Is(err, ErrNotFound):
		profile = &Profile{
			ID:        id,
			FullName:  fullName,
			AvatarURL: avatarURL,
			Credits:   defaultCredits,
			Role:      RoleUser,
		}
		if err := s.db.WithContext(ctx).Create(profile).Error; err != nil {
			return nil, fmt.Errorf("create profile: %w", err)
		}
		return profile, nil
	case err != nil:
		return nil, err
	}

	updates := map[string]any{}
	if strings.TrimSpace(fullName) != "" {
		updates["full_name"] = fullName
	}
	if strings.TrimSpace(avatarURL) != "" {
		updates["avatar_url"] = avatarURL
	}
	if len(updates) == 0 {
		return profile, nil
	}
	if err := s.db.WithContext(ctx).Model(profile).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return s.GetProfile(ctx, id)
}

// DeductCredit removes one credit only while the balance is positive.
// The condition lives in the UPDATE itself so concurrent callers cannot drive it negative.
func (s *Store) DeductCredit(ctx context.Context, userID string) error {
	result := s.db.WithContext(ctx).
		Model(&Profile{}).
		Where("id = ? AND credits > ?", userID, 0).
		UpdateColumn("credits", gorm.Expr("credits - ?", 1))
	if result.Error != nil {
		return fmt.Errorf("deduct credit: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrInsufficientCredits
	}
	return nil
}

// SetCredits overwrites a balance (admin).
func (s *Store) SetCredits(ctx context.Context, userID string, credits int) (*Profile, error) {
	if credits < 0 {
		return nil, errors.New("credits must not be negative")
	}
	return s.updateProfile(ctx, userID, map[string]any{"credits": credits})
}

// SetBanned toggles the ban flag (admin).
func (s *Store) SetBanned(ctx context.Context, userID string, banned bool) (*Profile, error) {
	return s.updateProfile(ctx, userID, map[string]any{"is_banned": banned})
}

// SetRole changes a profile's role.
func (s *Store) SetRole(ctx context.Context, userID, role string) (*Profile, error) {
	if role != RoleUser && role != RoleAdmin {
		return nil, fmt.Errorf("unknown role %q", role)
	}
	return s.updateProfile(ctx, userID, map[string]any{"role": role})
}

func (s *Store) updateProfile(ctx context.Context, userID string, updates map[string]any) (*Profile, error) {
	result := s.db.WithContext(ctx).Model(&Profile{}).Where("id = ?", userID).Updates(updates)
	if result.Error != nil {
		return nil, fmt.Errorf("update profile: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.GetProfile(ctx, userID)
}

// DeleteProfile removes a profile; its projects cascade.
func (s *Store) DeleteProfile(ctx context.Context, userID string) error {
	result := s.db.WithContext(ctx).Delete(&Profile{}, "id = ?", userID)
	if result.Error != nil {
		return fmt.Errorf("delete profile: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListProfiles pages through all profiles, newest first.
func (s *Store) ListProfiles(ctx context.Context, page Page) ([]Profile, int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&Profile{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count profiles: %w", err)
	}
	var profiles []Profile
	if err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&profiles).Error; err != nil {
		return nil, 0, fmt.Errorf("list profiles: %w", err)
	}
	return profiles, total, nil
}

// CreateProject inserts an empty project owned by userID.
func (s *Store) CreateProject(ctx context.Context, userID, prompt, title string) (*Project, error) {
	if strings.TrimSpace(title) == "" {
		title = defaultProjectTitle
	}
	project := &Project{UserID: userID, Prompt: prompt, Title: title}
	if err := s.db.WithContext(ctx).Create(project).Error; err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	return project, nil
}

// ListProjects returns the owner's projects, most recently updated first.
func (s *Store) ListProjects(ctx context.Context, userID string) ([]Project, error) {
	var projects []Project
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&projects).Error; err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return projects, nil
}

// GetProjectByID loads a project regardless of owner.
func (s *Store) GetProjectByID(ctx context.Context, projectID string) (*Project, error) {
	var project Project
	if err := s.db.WithContext(ctx).First(&project, "id = ?", projectID).Error; err != nil {
		return nil, notFound(err, ErrNotFound)
	}
	return &project, nil
}

// GetProject loads a project and checks it belongs to userID.
func (s *Store) GetProject(ctx context.Context, projectID, userID string) (*Project, error) {
	project, err := s.GetProjectByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.UserID != userID {
		return nil, ErrAccessDenied
	}
	return project, nil
}

// UpdateProject applies the non-nil fields of u to an owned project and returns the fresh row.
func (s *Store) UpdateProject(ctx context.Context, projectID, userID string, u ProjectUpdate) (*Project, error) {
	project, err := s.GetProject(ctx, projectID, userID)
	if err != nil {
		return nil, err
	}
	cols := u.columns()
	if len(cols) == 0 {
		return project, nil
	}
	if err := s.db.WithContext(ctx).Model(project).Updates(cols).Error; err != nil {
		return nil, fmt.Errorf("update project: %w", err)
	}
	return s.GetProjectByID(ctx, projectID)
}

// UpdateProjectContent replaces the stored HTML of an owned project.
func (s *Store) UpdateProjectContent(ctx context.Context, projectID, userID, html string) error {
	_, err := s.UpdateProject(ctx, projectID, userID, ProjectUpdate{HTMLContent: &html})
	return err
}

// SetThumbnailKey records the object key of a rendered thumbnail.
func (s *Store) SetThumbnailKey(ctx context.Context, projectID, key string) error {
	result := s.db.WithContext(ctx).Model(&Project{}).Where("id = ?", projectID).Update("thumbnail_key", key)
	if result.Error != nil {
		return fmt.Errorf("set thumbnail key: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteProject removes an owned project and its versions.
func (s *Store) DeleteProject(ctx context.Context, projectID, userID string) error {
	if _, err := s.GetProject(ctx, projectID, userID); err != nil {
		return err
	}
	return s.deleteProject(ctx, projectID)
}

// AdminDeleteProject removes any project.
func (s *Store) AdminDeleteProject(ctx context.Context, projectID string) error {
	if _, err := s.GetProjectByID(ctx, projectID); err != nil {
		return err
	}
	return s.deleteProject(ctx, projectID)
}

func (s *Store) deleteProject(ctx context.Context, projectID string) error {
	if err := s.db.WithContext(ctx).Where("project_id = ?", projectID).Delete(&ProjectVersion{}).Error; err != nil {
		return fmt.Errorf("delete project versions: %w", err)
	}
	if err := s.db.WithContext(ctx).Delete(&Project{}, "id = ?", projectID).Error; err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	return nil
}

// SetProjectPublic flips the community visibility of any project (admin).
func (s *Store) SetProjectPublic(ctx context.Context, projectID string, isPublic bool) (*Project, error) {
	result := s.db.WithContext(ctx).Model(&Project{}).Where("id = ?", projectID).Update("is_public", isPublic)
	if result.Error != nil {
		return nil, fmt.Errorf("set project public: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.GetProjectByID(ctx, projectID)
}

// ListAllProjects pages through every project with its author (admin).
func (s *Store) ListAllProjects(ctx context.Context, page Page) ([]Project, int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&Project{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count projects: %w", err)
	}
	var projects []Project
	if err := s.db.WithContext(ctx).
		Omit("html_content").
		Preload("Author").
		Order("created_at DESC").
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&projects).Error; err != nil {
		return nil, 0, fmt.Errorf("list projects: %w", err)
	}
	return projects, total, nil
}

// publicAuthorColumns limits an author preload to what anonymous visitors may see.
func publicAuthorColumns(db *gorm.DB) *gorm.DB {
	return db.Select("id", "full_name", "avatar_url")
}

// ListPublicProjects pages through projects flagged public.
func (s *Store) ListPublicProjects(ctx context.Context, page Page) ([]Project, int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&Project{}).Where("is_public = ?", true).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count public projects: %w", err)
	}
	var projects []Project
	if err := s.db.WithContext(ctx).
		Preload("Author", publicAuthorColumns).
		Where("is_public = ?", true).
		Order("created_at DESC").
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&projects).Error; err != nil {
		return nil, 0, fmt.Errorf("list public projects: %w", err)
	}
	return projects, total, nil
}

// GetPublicProject loads a project only if it is public.
func (s *Store) GetPublicProject(ctx context.Context, projectID string) (*Project, error) {
	var project Project
	if err := s.db.WithContext(ctx).
		Preload("Author", publicAuthorColumns).
		Where("id = ? AND is_public = ?", projectID, true).
		First(&project).Error; err != nil {
		return nil, notFound(err, ErrNotFound)
	}
	return &project, nil
}

// ListVersions returns an owned project's versions, newest first.
func (s *Store) ListVersions(ctx context.Context, projectID, userID string) ([]ProjectVersion, error) {
	if _, err := s.GetProject(ctx, projectID, userID); err != nil {
		return nil, err
	}
	var versions []ProjectVersion
	if err := s.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("version_number DESC").
		Find(&versions).Error; err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	return versions, nil
}

// SaveVersion appends a version numbered max(existing)+1. Two concurrent saves of
// the same number are rejected by the unique (project_id, version_number) index.
func (s *Store) SaveVersion(ctx context.Context, projectID, userID, html, label string) (*ProjectVersion, error) {
	if _, err := s.GetProject(ctx, projectID, userID); err != nil {
		return nil, err
	}

	var latest int
	if err := s.db.WithContext(ctx).
		Model(&ProjectVersion{}).
		Where("project_id = ?", projectID).
		Select("COALESCE(MAX(version_number), 0)").
		Scan(&latest).Error; err != nil {
		return nil, fmt.Errorf("query latest version: %w", err)
	}

	next := latest + 1
	if strings.TrimSpace(label) == "" {
		label = fmt.Sprintf("Version %d", next)
	}

	version := &ProjectVersion{
		ProjectID:     projectID,
		HTMLContent:   html,
		Label:         label,
		VersionNumber: next,
	}
	if err := s.db.WithContext(ctx).Create(version).Error; err != nil {
		return nil, fmt.Errorf("insert version: %w", err)
	}
	return version, nil
}

// RestoreVersion copies a version's HTML onto its project. The version row and any
// later versions are left untouched.
func (s *Store) RestoreVersion(ctx context.Context, projectID, userID, versionID string) (*Project, error) {
	if _, err := s.GetProject(ctx, projectID, userID); err != nil {
		return nil, err
	}

	var version ProjectVersion
	if err := s.db.WithContext(ctx).
		Where("id = ? AND project_id = ?", versionID, projectID).
		First(&version).Error; err != nil {
		return nil, notFound(err, ErrVersionNotFound)
	}

	return s.UpdateProject(ctx, projectID, userID, ProjectUpdate{HTMLContent: &version.HTMLContent})
}

// InsertAiLog writes one audit row.
func (s *Store) InsertAiLog(ctx context.Context, entry *AiLog) error {
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("insert ai log: %w", err)
	}
	return nil
}

// ListAiLogs pages through audit rows with their author, newest first.
func (s *Store) ListAiLogs(ctx context.Context, page Page) ([]AiLog, int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&AiLog{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count ai logs: %w", err)
	}
	var logs []AiLog
	if err := s.db.WithContext(ctx).
		Preload("Author").
		Order("created_at DESC").
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&logs).Error; err != nil {
		return nil, 0, fmt.Errorf("list ai logs: %w", err)
	}
	return logs, total, nil
}

// Stats summarises the dashboard counters.
type Stats struct {
	TotalUsers            int64 `json:"totalUsers"`
	TotalProjects         int64 `json:"totalProjects"`
	TotalGenerations      int64 `json:"totalGenerations"`
	SuccessfulGenerations int64 `json:"successfulGenerations"`
	TotalCreditsIssued    int64 `json:"totalCreditsIssued"`
}

// Stats runs the dashboard counts concurrently.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.db.WithContext(gctx).Model(&Profile{}).Count(&stats.TotalUsers).Error
	})
	g.Go(func() error {
		return s.db.WithContext(gctx).Model(&Project{}).Count(&stats.TotalProjects).Error
	})
	g.Go(func() error {
		return s.db.WithContext(gctx).Model(&AiLog{}).Count(&stats.TotalGenerations).Error
	})
	g.Go(func() error {
		return s.db.WithContext(gctx).Model(&AiLog{}).Where("success = ?", true).Count(&stats.SuccessfulGenerations).Error
	})
	g.Go(func() error {
		return s.db.WithContext(gctx).Model(&Profile{}).Select("COALESCE(SUM(credits), 0)").Scan(&stats.TotalCreditsIssued).Error
	})

	if err := g.Wait(); err != nil {
		return Stats{}, fmt.Errorf("collect stats: %w", err)
	}
	return stats, nil
}
