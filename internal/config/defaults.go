package config

const (
	defaultDataDir              = "~/.local/share/castsync"
	defaultLogDir               = "~/.local/share/castsync/logs"
	defaultPlayerPath           = "/engage/ui/watch.html"
	defaultSchedulerPath        = "/admin/index.html#/recordings"
	defaultDashboardPath        = "/dashboard/index.html"
	defaultDeletionWorkflowName = "delete-archive"
	defaultConnectTimeout       = 1
	defaultRequestTimeout       = 10
	defaultTagImported          = "OPENCAST"
	defaultUserPassword         = "changeme"
	defaultIdentityProperty     = "castsync_object"
	defaultLanguage             = "en"
	defaultLogFormat            = "text"
	defaultLogLevel             = "info"
	defaultNotifyTimeout        = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Opencast: Opencast{
			PlayerPath:           defaultPlayerPath,
			SchedulerPath:        defaultSchedulerPath,
			DashboardPath:        defaultDashboardPath,
			DeletionWorkflowName: defaultDeletionWorkflowName,
			UserPassword:         defaultUserPassword,
			ConnectTimeout:       defaultConnectTimeout,
			RequestTimeout:       defaultRequestTimeout,
		},
		Import: Import{
			DefaultTagImported: defaultTagImported,
			DefaultLanguage:    defaultLanguage,
			IdentityProperty:   defaultIdentityProperty,
			PicFlavors: []string{
				"presenter/player+preview",
				"presenter/search+preview",
			},
		},
		SBS: SBS{
			ErrorIfFileNotExist: true,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
