package app

// Constants
const (
	FilePermissions = 0644
	TmpSuffix       = ".tmp"
	BackupSuffix    = ".backup"

	// Error messages
	ErrInvalidFormat        = "Invalid format"
	ErrInvalidID            = "Invalid event id"
	ErrInvalidPage          = "Invalid page"
	ErrEventNotFound        = "Event not found"
	ErrInternalServer       = "Internal server error"
	ErrCatalogUnavailable   = "Failed to fetch courses"
	ErrRefreshFailed        = "Failed to refresh events"
	ErrFailedToGenerateICS  = "Failed to generate calendar"
	ErrFailedToGenerateJSON = "Failed to generate JSON"
	ErrFailedToGenerateCSV  = "Failed to generate CSV"
	ErrUnauthorized         = "Unauthorized"

	// Export formats
	FormatICS  = "ics"
	FormatCSV  = "csv"
	FormatJSON = "json"

	// ICS constants
	ICSProductID    = "-//Berlin//Bildungszeit Finder//DE"
	ICSTimezone     = "Europe/Berlin"
	ICSCalendarName = "Bildungszeit Berlin"
	ICSUIDDomain    = "bildungszeit.berlin.de"
	ICSPublishedTTL = "PT1H"

	// Download file name prefix
	ExportBaseName = "bildungszeit_berlin"
)

// SPARoutes are the client-side routes served with the SPA shell
var SPARoutes = []string{"/", "/map", "/combined", "/dashboard"}
