package models

// StatsID is the primary key of the only stats row.
const StatsID = 1

// DefaultGithubStars seeds the externally sourced star count.
const DefaultGithubStars = 7823

type Stats struct {
	ID              uint `gorm:"primaryKey" json:"id"`
	ActiveUsers     int  `gorm:"default:0;not null" json:"activeUsers"`
	ProjectsCreated int  `gorm:"default:0;not null" json:"projectsCreated"`
	CommunityPosts  int  `gorm:"default:0;not null" json:"communityPosts"`
	GithubStars     int  `gorm:"default:0;not null" json:"githubStars"`
}

// StatKind names the entity whose creation bumps a stats counter.
type StatKind string

const (
	StatUsers       StatKind = "users"
	StatProjects    StatKind = "projects"
	StatDiscussions StatKind = "discussions"
)

// Column returns the stats column counting this kind, or "" if unknown.
func (k StatKind) Column() string {
	switch k {
	case StatUsers:
		return "active_users"
	case StatProjects:
		return "projects_created"
	case StatDiscussions:
		return "community_posts"
	}
	return ""
}

// Bump increments the counter for k in place.
func (s *Stats) Bump(k StatKind) {
	switch k {
	case StatUsers:
		s.ActiveUsers++
	case StatProjects:
		s.ProjectsCreated++
	case StatDiscussions:
		s.CommunityPosts++
	}
}
