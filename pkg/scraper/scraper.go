package scraper

import (
	"context"
	"errors"
	"fmt"

	"bookmarkdl/internal/downloader"
	"bookmarkdl/pkg/auth"
	"bookmarkdl/pkg/browser"
	"bookmarkdl/pkg/collector"
	"bookmarkdl/pkg/config"
	bderrors "bookmarkdl/pkg/errors"
	"bookmarkdl/pkg/history"
	"bookmarkdl/pkg/links"
	"bookmarkdl/pkg/logger"
	"bookmarkdl/pkg/metadata"
	"bookmarkdl/pkg/storage"
	"bookmarkdl/pkg/ui"
)

// Modes recorded in the run history
const (
	ModeRun      = "run"
	ModeCollect  = "collect"
	ModeDownload = "download"
	ModeExtract  = "extract"
)

// Deps are the collaborators of a Runner. Only Launch is required for
// the browser-backed modes; everything else may be left nil.
type Deps struct {
	Launch   SessionLauncher
	Sessions SessionStore
	Prompter browser.Acknowledger
	Fetcher  downloader.Fetcher
	History  *history.Store
	Notifier *ui.Notifier
	Logger   logger.Logger

	// Relogin ignores remembered cookies and always runs the login hand-off
	Relogin bool
}

// Result describes what a pipeline invocation did
type Result struct {
	RunID      string
	Collection collector.Stats
	Validation storage.ValidationResult
	// Summary is nil when no download phase ran
	Summary *downloader.RunSummary
	// Bytes is the size of the media files produced by successful items
	Bytes int64
}

// Runner executes the pipeline for one configuration
type Runner struct {
	cfg     *config.Config
	deps    Deps
	matcher links.Matcher
	logger  logger.Logger
}

// New creates a Runner. A nil Fetcher defaults to the configured retrieval tool.
func New(cfg *config.Config, deps Deps) *Runner {
	log := deps.Logger
	if log == nil {
		log = logger.GetLogger()
	}
	if deps.Fetcher == nil {
		deps.Fetcher = downloader.NewYTDLP(cfg.Download, cfg.Output.Directory)
	}
	if deps.Prompter == nil {
		deps.Prompter = browser.NewTerminalPrompter()
	}

	return &Runner{
		cfg:     cfg,
		deps:    deps,
		matcher: links.Matcher{Domain: cfg.Platform.Domain, Marker: cfg.Platform.ItemMarker},
		logger:  log.WithField("component", "scraper"),
	}
}

// LaunchBrowser adapts browser.Launch to a SessionLauncher
func LaunchBrowser(cfg config.BrowserConfig, log logger.Logger) SessionLauncher {
	return func(ctx context.Context) (BrowserSession, error) {
		s, err := browser.Launch(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

// Run is the full pipeline: session, collection, persistence, downloads
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	res := &Result{RunID: r.startRun(ctx, ModeRun)}

	set, err := r.collectLive(ctx, res)
	if err == nil {
		err = r.persistAndDownload(ctx, set, res)
	}

	r.finishRun(ctx, res, err)
	return res, err
}

// Collect runs the browser phases and writes the backup file without downloading
func (r *Runner) Collect(ctx context.Context) (*Result, error) {
	res := &Result{RunID: r.startRun(ctx, ModeCollect)}

	set, err := r.collectLive(ctx, res)
	if err == nil {
		res.Validation, err = storage.ValidateAndPersist(set, r.cfg.Output.BackupFile, r.matcher, r.logger)
	}

	r.finishRun(ctx, res, err)
	return res, err
}

// Extract collects from a saved HTML page instead of a live browser.
// With download set the valid links are downloaded as in Run.
func (r *Runner) Extract(ctx context.Context, htmlPath string, download bool) (*Result, error) {
	res := &Result{RunID: r.startRun(ctx, ModeExtract)}

	source, err := collector.OpenHTMLSource(htmlPath, collector.PlatformOrigin(r.cfg.Platform.Domain))
	if err != nil {
		err = bderrors.New(bderrors.ErrorTypeExtraction, "failed to load saved page", err)
		r.finishRun(ctx, res, err)
		return res, err
	}

	opts := collector.OptionsFromConfig(r.cfg)
	opts.Logger = r.logger
	// a static page never grows after the first scan
	opts.MaxStallAttempts = 1
	opts.ScrollDelay = 0
	opts.ContainerDelay = 0

	set, stats := collector.Collect(ctx, source, collector.StaticScroller{}, opts)
	res.Collection = stats

	if download {
		err = r.persistAndDownload(ctx, set, res)
	} else {
		res.Validation, err = storage.ValidateAndPersist(set, r.cfg.Output.BackupFile, r.matcher, r.logger)
	}

	r.finishRun(ctx, res, err)
	return res, err
}

// DownloadFromFile resumes from a backup file written by an earlier run
func (r *Runner) DownloadFromFile(ctx context.Context, path string) (*Result, error) {
	res := &Result{RunID: r.startRun(ctx, ModeDownload)}

	err := r.downloadFromFile(ctx, path, res)

	r.finishRun(ctx, res, err)
	return res, err
}

func (r *Runner) downloadFromFile(ctx context.Context, path string, res *Result) error {
	set, err := storage.ReadBackup(path)
	if err != nil {
		return bderrors.New(bderrors.ErrorTypeValidation, "failed to read backup file", err)
	}

	res.Validation = storage.Validate(set.Items(), r.matcher)
	r.logger.InfoWithFields("Backup loaded", map[string]interface{}{
		"path":     path,
		"total":    res.Validation.Total(),
		"valid":    len(res.Validation.Valid),
		"rejected": len(res.Validation.Rejected),
	})
	if len(res.Validation.Valid) == 0 {
		return bderrors.ErrNoValidURLs
	}

	return r.download(ctx, res.Validation.Valid, set.Len(), path, res)
}

// collectLive acquires the browser, brings it to the listing and collects.
// The browser is closed before it returns.
func (r *Runner) collectLive(ctx context.Context, res *Result) (*links.URLSet, error) {
	if r.deps.Launch == nil {
		return nil, bderrors.New(bderrors.ErrorTypeConfig, "no browser launcher configured", nil)
	}

	sess, err := r.deps.Launch(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, bderrors.ErrInterrupted
		}
		return nil, err
	}
	defer sess.Close()

	if err := r.prepare(ctx, sess); err != nil {
		return nil, err
	}

	ui.PrintHighlight("\n[EXTRACTING BOOKMARK URLS]")
	progress := ui.NewCollectProgress()

	opts := collector.OptionsFromConfig(r.cfg)
	opts.Logger = r.logger
	opts.OnAttempt = progress.Update

	set, stats := collector.Collect(ctx, sess, sess, opts)
	progress.Done(stats.Found)
	res.Collection = stats

	if stats.Reason == collector.StopInterrupted {
		// keep what was found so a later download --from-file can resume
		if _, err := storage.ValidateAndPersist(set, r.cfg.Output.BackupFile, r.matcher, r.logger); err != nil {
			r.logger.WithError(err).Debug("Partial backup not written")
		}
		return nil, bderrors.ErrInterrupted
	}
	return set, nil
}

// prepare restores or establishes the login and opens the listing
func (r *Runner) prepare(ctx context.Context, sess BrowserSession) error {
	if !r.restoreSession(ctx, sess) {
		ui.PrintRule("MANUAL LOGIN REQUIRED")
		err := browser.Login(ctx, sess, r.deps.Prompter, r.cfg.Platform.LoginURL, r.cfg.Browser.LoginTimeout, r.logger)
		if err != nil {
			return r.handoffError(ctx, "login hand-off failed", err)
		}
		r.rememberSession(ctx, sess)
	}

	if r.cfg.Platform.StartURL == "" {
		ui.PrintRule("MANUAL NAVIGATION TO BOOKMARKS")
	}
	if err := browser.NavigateToListing(ctx, sess, r.deps.Prompter, r.cfg.Platform.StartURL, r.logger); err != nil {
		return r.handoffError(ctx, "navigation hand-off failed", err)
	}
	return nil
}

func (r *Runner) handoffError(ctx context.Context, msg string, err error) error {
	if ctx.Err() != nil {
		return bderrors.ErrInterrupted
	}
	return bderrors.New(bderrors.ErrorTypeSession, msg, err)
}

// restoreSession injects remembered cookies and reports whether login can be skipped
func (r *Runner) restoreSession(ctx context.Context, sess BrowserSession) bool {
	if r.deps.Relogin || r.deps.Sessions == nil || !r.cfg.Browser.RememberSession {
		return false
	}

	saved, err := r.deps.Sessions.Load(r.cfg.Browser.Profile)
	if err != nil {
		if !errors.Is(err, auth.ErrSessionNotFound) {
			r.logger.WithError(err).Warn("Failed to load remembered session")
		}
		return false
	}

	if err := sess.SetCookies(ctx, saved.Cookies); err != nil {
		r.logger.WithError(err).Warn("Failed to restore remembered session")
		return false
	}

	active, err := browser.SessionActive(ctx, sess, r.cfg.Platform.LoginURL, r.cfg.Browser.LoginTimeout)
	if err != nil {
		r.logger.WithError(err).Warn("Failed to check remembered session")
		return false
	}
	if !active {
		r.logger.WarnWithFields("Remembered session was rejected, logging in again", map[string]interface{}{
			"profile": saved.Profile,
		})
		return false
	}

	r.logger.InfoWithFields("Restored remembered session", map[string]interface{}{
		"profile":  saved.Profile,
		"cookies":  len(saved.Cookies),
		"saved_at": saved.SavedAt,
	})
	return true
}

func (r *Runner) rememberSession(ctx context.Context, sess BrowserSession) {
	if r.deps.Sessions == nil || !r.cfg.Browser.RememberSession {
		return
	}

	cookies, err := sess.Cookies(ctx)
	if err != nil {
		r.logger.WithError(err).Warn("Failed to read session cookies")
		return
	}

	err = r.deps.Sessions.Save(&auth.Session{
		Profile: r.cfg.Browser.Profile,
		Domain:  r.cfg.Platform.Domain,
		Cookies: cookies,
	})
	if err != nil {
		r.logger.WithError(err).Warn("Failed to remember session")
		return
	}
	r.logger.DebugWithFields("Session remembered", map[string]interface{}{
		"profile": r.cfg.Browser.Profile,
		"cookies": len(cookies),
	})
}

// persistAndDownload writes the backup, then downloads the valid links.
// No valid links means no output directory and no tool invocation.
func (r *Runner) persistAndDownload(ctx context.Context, set *links.URLSet, res *Result) error {
	var err error
	res.Validation, err = storage.ValidateAndPersist(set, r.cfg.Output.BackupFile, r.matcher, r.logger)
	if err != nil {
		return err
	}

	ui.PrintInfo("Proceeding with", fmt.Sprintf("%d valid URLs", len(res.Validation.Valid)))
	return r.download(ctx, res.Validation.Valid, set.Len(), r.cfg.Output.BackupFile, res)
}

func (r *Runner) download(ctx context.Context, urls []links.CandidateURL, total int, backupFile string, res *Result) error {
	store, err := storage.NewManager(r.cfg.Output.Directory)
	if err != nil {
		return bderrors.New(bderrors.ErrorTypeConfig, "failed to prepare output directory", err)
	}
	ui.PrintInfo("Downloading to", store.Dir())

	progress := ui.NewItemProgress()
	orch := downloader.NewOrchestrator(r.deps.Fetcher, downloader.Options{
		ItemTimeout: r.cfg.Download.ItemTimeout,
		Pause:       r.cfg.Download.Pause,
		OutputDir:   r.cfg.Output.Directory,
		BackupFile:  backupFile,
		OnStart: func(index, count int, url links.CandidateURL) {
			progress.Start(index+1, count, string(url))
		},
		OnOutcome: func(_ int, o downloader.Outcome) {
			item := r.inspect(store, o)
			progress.Finish(o, ui.Detail{Title: item.Title, File: item.MediaFile, Size: item.Size})
			r.recordOutcome(ctx, res.RunID, item)
		},
	}, r.logger)

	summary, err := orch.RunAll(ctx, urls, total)
	res.Summary = &summary
	res.Bytes = progress.Bytes()
	return err
}

// inspect looks up the files a successful item produced
func (r *Runner) inspect(store *storage.Manager, o downloader.Outcome) history.Item {
	item := history.Item{
		Index:   o.Index + 1,
		URL:     string(o.URL),
		Status:  o.Status,
		Reason:  o.Reason,
		Elapsed: o.Elapsed,
	}
	if !o.OK() {
		return item
	}

	id := o.URL.ItemID(r.cfg.Platform.ItemMarker)
	if id == "" {
		return item
	}
	files, err := store.ItemFiles(id)
	if err != nil {
		r.logger.WithError(err).Debug("Failed to list item files")
		return item
	}
	item.MediaFile, item.Size = storage.MediaFile(files)

	meta, err := metadata.FromFiles(files)
	if err != nil {
		r.logger.WithError(err).DebugWithFields("Unreadable item metadata", map[string]interface{}{"id": id})
		return item
	}
	if meta != nil {
		item.Uploader = meta.Uploader
		item.Title = meta.GetFormattedTitle(60)
		item.UploadedAt = meta.UploadedAt()
		if meta.Height > 0 {
			item.AspectRatio = meta.GetAspectRatio()
		}
	}
	return item
}

func (r *Runner) startRun(ctx context.Context, mode string) string {
	if r.deps.History == nil {
		return ""
	}
	run, err := r.deps.History.StartRun(ctx, mode)
	if err != nil {
		r.logger.WithError(err).Warn("Failed to record run in history")
		return ""
	}
	return run.ID
}

func (r *Runner) recordOutcome(ctx context.Context, runID string, item history.Item) {
	if r.deps.History == nil || runID == "" {
		return
	}
	// outcomes are recorded even while the run is being interrupted
	if err := r.deps.History.RecordOutcome(context.WithoutCancel(ctx), runID, item); err != nil {
		r.logger.WithError(err).Warn("Failed to record outcome in history")
	}
}

// finishRun closes the history record and sends the end-of-run notification
func (r *Runner) finishRun(ctx context.Context, res *Result, err error) {
	status := runStatus(err)

	if r.deps.History != nil && res.RunID != "" {
		var summary downloader.RunSummary
		if res.Summary != nil {
			summary = *res.Summary
		} else {
			summary.Total = res.Validation.Total()
			summary.BackupFile = r.cfg.Output.BackupFile
		}
		if herr := r.deps.History.FinishRun(context.WithoutCancel(ctx), res.RunID, status, summary); herr != nil {
			r.logger.WithError(herr).Warn("Failed to finish run in history")
		}
	}

	r.notify(res, err)
}

func (r *Runner) notify(res *Result, err error) {
	switch {
	case err != nil && errors.Is(err, bderrors.ErrInterrupted):
		r.deps.Notifier.SendNotification("bookmarkdl", "Run interrupted")
	case err != nil:
		r.deps.Notifier.SendError("bookmarkdl", err.Error())
	case res.Summary != nil:
		r.deps.Notifier.SendSuccess("Download complete",
			fmt.Sprintf("%d of %d downloaded, %d failed", res.Summary.Successful, res.Summary.Attempted(), res.Summary.Failed))
	default:
		r.deps.Notifier.SendSuccess("Collection complete",
			fmt.Sprintf("%d valid URLs saved to %s", len(res.Validation.Valid), r.cfg.Output.BackupFile))
	}
}

func runStatus(err error) string {
	switch {
	case err == nil:
		return history.StatusCompleted
	case errors.Is(err, bderrors.ErrInterrupted):
		return history.StatusInterrupted
	default:
		return history.StatusFailed
	}
}
