package query

// Resource names a cached backend resource.
type Resource string

const (
	Session       Resource = "session"
	Announcements Resource = "announcements"
	Announcement  Resource = "announcement"
	Organizations Resource = "organizations"
	Organization  Resource = "organization"
	Favorites     Resource = "favorites"
	Notifications Resource = "notifications"
	Trackers      Resource = "trackers"
	Reports       Resource = "reports"
)

// Mutation names a write against the backend.
type Mutation string

const (
	Login              Mutation = "login"
	Logout             Mutation = "logout"
	CreateAnnouncement Mutation = "announcement.create"
	UpdateAnnouncement Mutation = "announcement.update"
	DeleteAnnouncement Mutation = "announcement.delete"
	ReviewAnnouncement Mutation = "announcement.review"
	UpdateOrganization Mutation = "organization.update"
	FlagOrganization   Mutation = "organization.flags"
	AddFavorite        Mutation = "favorite.add"
	RemoveFavorite     Mutation = "favorite.remove"
	DeleteNotification Mutation = "notification.delete"
	UpsertTracker      Mutation = "tracker.upsert"
	DeleteTracker      Mutation = "tracker.delete"
	CreateReport       Mutation = "report.create"
)

// Invalidates lists, for every mutation, the resources whose cached entries
// are dropped once the backend confirms it. This table is the only place
// invalidation rules live.
var Invalidates = map[Mutation][]Resource{
	Login:              {Session},
	Logout:             {Session, Favorites, Notifications, Trackers, Reports},
	CreateAnnouncement: {Announcements},
	UpdateAnnouncement: {Announcements, Announcement, Favorites, Trackers},
	DeleteAnnouncement: {Announcements, Announcement, Favorites, Trackers},
	ReviewAnnouncement: {Announcements, Announcement},
	UpdateOrganization: {Organizations, Organization, Announcements},
	FlagOrganization:   {Organizations, Organization},
	AddFavorite:        {Favorites},
	RemoveFavorite:     {Favorites},
	DeleteNotification: {Notifications},
	UpsertTracker:      {Trackers},
	DeleteTracker:      {Trackers},
	CreateReport:       {Reports},
}
