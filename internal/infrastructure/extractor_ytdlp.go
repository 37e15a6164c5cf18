package infrastructure

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/tubequeue/internal/domain"
	"github.com/yourusername/tubequeue/pkg/logger"
)

// YTDLPExtractor implements domain.Extractor by shelling out to the
// yt-dlp binary. Raw process output is redirected to a dated download
// log; only parsed progress and destinations flow back to callers.
type YTDLPExtractor struct {
	cfg         domain.ExtractorConfig
	logsDir     string
	eventLogger *logger.MultiLogger
}

// NewYTDLPExtractor creates the extraction service client
func NewYTDLPExtractor(cfg domain.ExtractorConfig, logsDir string, eventLogger *logger.MultiLogger) *YTDLPExtractor {
	return &YTDLPExtractor{
		cfg:         cfg,
		logsDir:     logsDir,
		eventLogger: eventLogger,
	}
}

// CheckTools verifies yt-dlp and ffmpeg are reachable before any work
// starts. ffmpeg is needed for merges and audio extraction.
func (e *YTDLPExtractor) CheckTools() error {
	if _, err := exec.LookPath(e.cfg.YTDLPBinary); err != nil {
		return &domain.ToolMissingError{
			Tool: e.cfg.YTDLPBinary,
			Hint: "install yt-dlp and make sure it is on PATH",
		}
	}
	if _, err := exec.LookPath(e.cfg.FFmpegBinary); err != nil {
		return &domain.ToolMissingError{
			Tool: e.cfg.FFmpegBinary,
			Hint: "install ffmpeg and make sure it is on PATH",
		}
	}
	return nil
}

// ytdlpInfo mirrors the subset of yt-dlp's -J output the service uses
type ytdlpInfo struct {
	ID         string        `json:"id"`
	Title      string        `json:"title"`
	Uploader   string        `json:"uploader"`
	Channel    string        `json:"channel"`
	Duration   float64       `json:"duration"`
	Thumbnail  string        `json:"thumbnail"`
	WebpageURL string        `json:"webpage_url"`
	ViewCount  int64         `json:"view_count"`
	UploadDate string        `json:"upload_date"`
	URL        string        `json:"url"`
	Formats    []ytdlpFormat `json:"formats"`
	Entries    []ytdlpInfo   `json:"entries"`
}

type ytdlpFormat struct {
	FormatID       string  `json:"format_id"`
	Height         int     `json:"height"`
	FPS            float64 `json:"fps"`
	ACodec         string  `json:"acodec"`
	VCodec         string  `json:"vcodec"`
	Ext            string  `json:"ext"`
	Protocol       string  `json:"protocol"`
	Filesize       int64   `json:"filesize"`
	FilesizeApprox int64   `json:"filesize_approx"`
	URL            string  `json:"url"`
	FormatNote     string  `json:"format_note"`
}

// FetchMetadata resolves a locator to metadata and its format list
func (e *YTDLPExtractor) FetchMetadata(ctx context.Context, url string) (*domain.MediaInfo, error) {
	args := []string{"-J", "--no-warnings", "--no-playlist", url}

	out, err := e.runJSON(ctx, args)
	if err != nil {
		return nil, fmt.Errorf("metadata extraction failed: %w", err)
	}

	var info ytdlpInfo
	if err := json.Unmarshal(out, &info); err != nil {
		return nil, fmt.Errorf("metadata parse failed: %w", err)
	}
	return toMediaInfo(&info), nil
}

// Search runs a ranked query via the ytsearch pseudo-locator, flat so
// no per-result extraction happens.
func (e *YTDLPExtractor) Search(ctx context.Context, query string, limit int) ([]domain.SearchResultEntry, error) {
	if limit < 1 {
		limit = 1
	}
	target := fmt.Sprintf("ytsearch%d:%s", limit, query)
	args := []string{"-J", "--no-warnings", "--flat-playlist", target}

	out, err := e.runJSON(ctx, args)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	var info ytdlpInfo
	if err := json.Unmarshal(out, &info); err != nil {
		return nil, fmt.Errorf("search parse failed: %w", err)
	}

	entries := make([]domain.SearchResultEntry, 0, len(info.Entries))
	for _, entry := range info.Entries {
		if entry.ID == "" {
			continue
		}
		entries = append(entries, toSearchEntry(&entry))
	}
	return entries, nil
}

// runJSON executes yt-dlp capturing stdout, with stderr appended to
// the dated download log for diagnosis.
func (e *YTDLPExtractor) runJSON(ctx context.Context, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, e.cfg.YTDLPBinary, args...)

	if logFile, err := e.openLogFile(); err == nil {
		defer logFile.Close()
		cmd.Stderr = logFile
	}

	out, err := cmd.Output()
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Download runs the download/transcode, streaming progress back via
// the callback, and returns the final output path.
func (e *YTDLPExtractor) Download(ctx context.Context, req domain.DownloadRequest, progress domain.ProgressFunc) (string, error) {
	if err := os.MkdirAll(req.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	args := []string{
		"--newline",
		"--no-playlist",
		"--restrict-filenames",
		"-o", "%(title)s.%(ext)s",
		"-P", req.OutputDir,
	}

	switch req.Kind {
	case domain.KindAudio:
		args = append(args, "-x", "--audio-format", "mp3")
		if req.AudioBitrate != "" {
			args = append(args, "--audio-quality", req.AudioBitrate+"K")
		}
	default:
		if req.FormatExpr != "" {
			args = append(args, "-f", req.FormatExpr)
		}
		if req.Container != "" {
			args = append(args, "--merge-output-format", req.Container)
		}
	}
	args = append(args, req.URL)

	downloadLog, err := e.openLogFile()
	if err != nil {
		return "", fmt.Errorf("failed to open download log: %w", err)
	}
	defer downloadLog.Close()

	cmdLine := ShellEscapeCommand(e.cfg.YTDLPBinary, args...)
	e.writeLogHeader(downloadLog, req.URL, cmdLine)

	// progress parsing needs line-buffered stdout; stderr goes straight
	// to the log
	cmd := exec.CommandContext(ctx, e.cfg.YTDLPBinary, args...)
	cmd.Stderr = downloadLog

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("failed to attach to yt-dlp output: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("yt-dlp failed to start: %w", err)
	}

	var tracker destinationTracker
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		fmt.Fprintln(downloadLog, line)

		tracker.observe(line)
		if update, ok := parseProgressLine(line); ok && progress != nil {
			downloaded := int64(update.Percent / 100 * float64(update.TotalBytes))
			progress(downloaded, update.TotalBytes)
		}
	}

	if err := cmd.Wait(); err != nil {
		e.writeLogFooter(downloadLog, false, fmt.Sprintf("yt-dlp failed: %v", err))
		if e.eventLogger != nil {
			e.eventLogger.LogAppError("yt-dlp download failed",
				zap.String("url", req.URL),
				zap.Error(err))
		}
		return "", fmt.Errorf("yt-dlp failed: %w", err)
	}

	outputPath := tracker.Path()
	if req.Kind == domain.KindAudio && outputPath != "" {
		// audio extraction replaces the container extension
		outputPath = replaceExt(outputPath, ".mp3")
	}
	if outputPath == "" {
		e.writeLogFooter(downloadLog, false, "no destination reported")
		return "", fmt.Errorf("yt-dlp reported no output file")
	}

	e.writeLogFooter(downloadLog, true, fmt.Sprintf("Downloaded: %s", outputPath))
	return outputPath, nil
}

// openLogFile opens the dated download log, one file per day, with
// all raw tool output appended in order.
func (e *YTDLPExtractor) openLogFile() (*os.File, error) {
	if err := os.MkdirAll(e.logsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	dateStr := time.Now().Format("20060102")
	path := filepath.Join(e.logsDir, "download-"+dateStr+".log")
	return os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
}

func (e *YTDLPExtractor) writeLogHeader(file *os.File, url, cmdLine string) {
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	file.WriteString(fmt.Sprintf("\n=== [%s] Download: %s ===\n", timestamp, url))
	file.WriteString(fmt.Sprintf("$ %s\n", cmdLine))
}

func (e *YTDLPExtractor) writeLogFooter(file *os.File, success bool, message string) {
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	status := "SUCCESS"
	if !success {
		status = "FAILED"
	}
	file.WriteString(fmt.Sprintf("[%s] %s: %s\n", timestamp, status, message))
	file.WriteString("=== END ===\n\n")
}

func toMediaInfo(info *ytdlpInfo) *domain.MediaInfo {
	out := &domain.MediaInfo{
		ID:           info.ID,
		Title:        info.Title,
		Uploader:     uploaderOf(info),
		DurationSec:  int64(info.Duration),
		ThumbnailURL: info.Thumbnail,
		WebpageURL:   info.WebpageURL,
	}
	for _, f := range info.Formats {
		out.Formats = append(out.Formats, domain.FormatDescriptor{
			ID:             f.FormatID,
			Height:         f.Height,
			FPS:            int(f.FPS),
			HasAudio:       f.ACodec != "" && f.ACodec != "none",
			HasVideo:       f.VCodec != "" && f.VCodec != "none",
			Ext:            f.Ext,
			Transport:      transportOf(f.Protocol),
			Filesize:       f.Filesize,
			FilesizeApprox: f.FilesizeApprox,
			URL:            f.URL,
			Note:           f.FormatNote,
		})
	}
	return out
}

func toSearchEntry(entry *ytdlpInfo) domain.SearchResultEntry {
	url := entry.URL
	if url == "" {
		url = fmt.Sprintf("https://www.youtube.com/watch?v=%s", entry.ID)
	}
	return domain.SearchResultEntry{
		ID:           entry.ID,
		Title:        entry.Title,
		Uploader:     uploaderOf(entry),
		DurationSec:  int64(entry.Duration),
		ViewCount:    entry.ViewCount,
		UploadDate:   entry.UploadDate,
		ThumbnailURL: entry.Thumbnail,
		URL:          url,
	}
}

func uploaderOf(info *ytdlpInfo) string {
	if info.Uploader != "" {
		return info.Uploader
	}
	return info.Channel
}

// transportOf maps a yt-dlp protocol tag onto the transport classes
// the resolver reasons about.
func transportOf(protocol string) domain.Transport {
	p := strings.ToLower(protocol)
	switch {
	case strings.Contains(p, "m3u8"):
		return domain.TransportHLS
	case strings.Contains(p, "dash"):
		return domain.TransportDASH
	default:
		return domain.TransportProgressive
	}
}

func replaceExt(path, ext string) string {
	old := filepath.Ext(path)
	return strings.TrimSuffix(path, old) + ext
}
