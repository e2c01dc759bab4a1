package utils

import (
	"database/sql"
	"log/slog"
	"os"
	"sync"
	"time"

	"icsplit/src-server/ical"

	"github.com/bwmarrin/discordgo"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"
)

// A parsed upload held in the in-memory cache between the upload call
// and any number of split calls. The ID doubles as the dedupe key: it
// is the SHA-256 of the file content, so re-uploading the same file
// lands on the same cache entry.
type UploadedCalendar struct {
	ID         string
	FileName   string
	ByteSize   int
	UploadedAt time.Time
	Calendar   *ical.Calendar
}

type AppState struct {
	startedAt time.Time

	Config     *Config
	RawDb      *sql.DB
	BunDB      *bun.DB
	DgSession  *discordgo.Session
	When       *when.Parser
	ParseCache *lru.Cache[string, *UploadedCalendar]

	// will be sent to Discord
	appCmdInfo      map[string]*discordgo.ApplicationCommand
	appCmdInfoMutex sync.RWMutex

	// handling commands from Discord WSAPI
	appCmdHandler      map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate) error
	appCmdHandlerMutex sync.RWMutex

	MetricChans *Metric

	AppCloseSignalChan    chan os.Signal
	gracefulShutdownChans []*chan struct{}
	gracefulShutdownMutex sync.Mutex
}

func NewAppState() *AppState {
	as := AppState{
		startedAt:          time.Now(),
		appCmdInfo:         make(map[string]*discordgo.ApplicationCommand),
		appCmdHandler:      make(map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate) error),
		MetricChans:        NewMetric(),
		AppCloseSignalChan: make(chan os.Signal, 1),
	}

	// natural date parser
	as.When = when.New(nil)
	as.When.Add(en.All...)
	as.When.Add(common.All...)

	// env
	as.Config = NewConfig()

	// parse cache
	parseCache, err := lru.New[string, *UploadedCalendar](as.Config.GetParseCacheSize())
	if err != nil {
		slog.Error("cannot create parse cache", "error", err)
		os.Exit(1)
	}
	as.ParseCache = parseCache

	// database
	as.RawDb, err = sql.Open(sqliteshim.ShimName, as.Config.GetSqlitePath()+"?mode=rwc")
	if err != nil {
		slog.Error("cannot open sqlite database", "error", err)
		os.Exit(1)
	}
	as.RawDb.SetMaxIdleConns(8)

	as.BunDB = bun.NewDB(as.RawDb, sqlitedialect.New())
	as.BunDB.AddQueryHook(bundebug.NewQueryHook(
		bundebug.WithVerbose(true),
		bundebug.FromEnv("BUNDEBUG"),
	))

	// Discord session, only when the env var trio is present
	if as.Config.DiscordEnabled() {
		dgSession, err := discordgo.New("Bot " + as.Config.GetDiscordAppToken())
		if err != nil {
			slog.Error("cannot create Discord session", "error", err)
			os.Exit(1)
		}
		as.DgSession = dgSession
	}

	return &as
}

// How long the app has been running.
func (as *AppState) GetUptime() time.Duration {
	return time.Since(as.startedAt)
}

// Create a channel that closes when GracefulShutdown is called. Every
// long-running goroutine that needs to clean up after itself should
// hold one of these.
func (as *AppState) CreateGracefulShutdownChan() *chan struct{} {
	gracefulShutdownChan := make(chan struct{})
	as.gracefulShutdownMutex.Lock()
	defer as.gracefulShutdownMutex.Unlock()
	as.gracefulShutdownChans = append(as.gracefulShutdownChans, &gracefulShutdownChan)
	return &gracefulShutdownChan
}

// Broadcast the shutdown signal to every channel handed out by
// CreateGracefulShutdownChan.
func (as *AppState) GracefulShutdown() {
	as.gracefulShutdownMutex.Lock()
	defer as.gracefulShutdownMutex.Unlock()
	for _, gracefulShutdownChan := range as.gracefulShutdownChans {
		close(*gracefulShutdownChan)
	}
	as.gracefulShutdownChans = nil
}

// #region AppCmdInfo
func (as *AppState) AddAppCmdInfo(id string, info *discordgo.ApplicationCommand) {
	as.appCmdInfoMutex.Lock()
	defer as.appCmdInfoMutex.Unlock()
	as.appCmdInfo[id] = info
}

func (as *AppState) GetAppCmdInfo(id string) (*discordgo.ApplicationCommand, bool) {
	as.appCmdInfoMutex.RLock()
	defer as.appCmdInfoMutex.RUnlock()
	info, ok := as.appCmdInfo[id]
	return info, ok
}

func (as *AppState) IterateAppCmdInfo(fn func(k string, v *discordgo.ApplicationCommand)) {
	as.appCmdInfoMutex.RLock()
	defer as.appCmdInfoMutex.RUnlock()
	for k, v := range as.appCmdInfo {
		fn(k, v)
	}
}

// Remove everything in the AppCmdInfo map, only call this after all the
// commands are registered with Discord.
func (as *AppState) NukeAppCmdInfo() {
	as.appCmdInfoMutex.Lock()
	defer as.appCmdInfoMutex.Unlock()
	as.appCmdInfo = make(map[string]*discordgo.ApplicationCommand)
}

// #endregion

// #region AppCmdHandler
func (as *AppState) AddAppCmdHandler(id string, handler func(s *discordgo.Session, i *discordgo.InteractionCreate) error) {
	as.appCmdHandlerMutex.Lock()
	defer as.appCmdHandlerMutex.Unlock()
	as.appCmdHandler[id] = handler
}

func (as *AppState) GetAppCmdHandler(id string) (func(s *discordgo.Session, i *discordgo.InteractionCreate) error, bool) {
	as.appCmdHandlerMutex.RLock()
	defer as.appCmdHandlerMutex.RUnlock()
	handler, ok := as.appCmdHandler[id]
	return handler, ok
}

func (as *AppState) RemoveAppCmdHandler(id string) {
	as.appCmdHandlerMutex.Lock()
	defer as.appCmdHandlerMutex.Unlock()
	delete(as.appCmdHandler, id)
}

// #endregion
