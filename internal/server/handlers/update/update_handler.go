// Package update proxies GitHub release lookups and downloads for the
// console clients, which cannot negotiate GitHub's TLS.
//
// This is an advisory surface: any upstream failure is reported as "no
// update available" rather than an error.
package update

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/imroc/req/v3"

	"github.com/pepasjc/savesync/internal/server/handlers/api"
	"github.com/pepasjc/savesync/internal/version"
)

// asset file extensions per client platform
var platformExt = map[string]string{
	"3ds": ".cia",
	"nds": ".nds",
}

type UpdateHandler struct {
	config *Config
	client *req.Client
}

func New(config *Config) *UpdateHandler {
	client := req.C().
		SetTimeout(10*time.Second).
		SetUserAgent("SaveSync/"+version.Version).
		SetCommonHeader("Accept", "application/vnd.github.v3+json")

	return &UpdateHandler{
		config: config,
		client: client,
	}
}

// Check reports whether a newer client release is available.
func (h *UpdateHandler) Check(ctx *gin.Context) {
	var query CheckQuery
	if err := ctx.ShouldBindQuery(&query); err != nil {
		api.AbortWithError(ctx, http.StatusBadRequest, api.CodeInvalidRequest, err)
		return
	}

	resp := &CheckResponse{Available: false, CurrentVersion: query.Current}

	release, err := h.latestRelease(ctx)
	if err != nil {
		slog.Warn("update check failed", "error", err)
		ctx.PureJSON(http.StatusOK, resp)
		return
	}

	latest := strings.TrimPrefix(release.TagName, "v")
	ext := platformExt[query.Platform]
	if ext == "" {
		ext = platformExt["3ds"]
	}

	var downloadURL string
	var fileSize int64
	for _, asset := range release.Assets {
		if strings.HasSuffix(asset.Name, ext) {
			downloadURL = asset.BrowserDownloadURL
			fileSize = asset.Size
			break
		}
	}

	resp.LatestVersion = latest
	resp.Changelog = release.Body
	if compareVersions(latest, query.Current) > 0 && downloadURL != "" {
		resp.Available = true
		resp.DownloadURL = downloadURL
		resp.FileSize = fileSize
	}

	ctx.PureJSON(http.StatusOK, resp)
}

// Download streams a release asset through the server.
func (h *UpdateHandler) Download(ctx *gin.Context) {
	url := ctx.Query("url")
	if url == "" {
		api.AbortWithError(ctx, http.StatusBadRequest, api.CodeInvalidRequest, errors.New("query param 'url' is required"))
		return
	}
	if !isGithubURL(url) {
		api.AbortWithError(ctx, http.StatusBadRequest, api.CodeInvalidRequest, errors.New("only github release urls can be proxied"))
		return
	}

	resp, err := h.client.R().
		SetContext(ctx.Request.Context()).
		DisableAutoReadResponse().
		SetRetryCount(0).
		Get(url)
	if err != nil {
		api.AbortWithError(ctx, http.StatusBadGateway, api.CodeInternalError, fmt.Errorf("fetch release asset: %w", err))
		return
	}
	defer resp.Body.Close()

	if resp.IsErrorState() {
		api.AbortWithError(ctx, http.StatusBadGateway, api.CodeInternalError,
			fmt.Errorf("fetch release asset: upstream status %d", resp.GetStatusCode()))
		return
	}

	ctx.Header("Content-Disposition", "attachment")
	ctx.Header("Content-Type", "application/octet-stream")
	if resp.ContentLength > 0 {
		ctx.Header("Content-Length", strconv.FormatInt(resp.ContentLength, 10))
	}
	ctx.Status(http.StatusOK)

	if _, err := io.Copy(ctx.Writer, resp.Body); err != nil {
		// Headers are already out; just log the broken stream.
		slog.Warn("update download stream interrupted", "url", url, "error", err)
	}
}

func (h *UpdateHandler) latestRelease(ctx *gin.Context) (*githubRelease, error) {
	url := fmt.Sprintf("https://api.github.com/repos/%s/%s/releases/latest", h.config.Owner, h.config.Repo)

	var release githubRelease
	resp, err := h.client.R().
		SetContext(ctx.Request.Context()).
		SetSuccessResult(&release).
		Get(url)
	if err != nil {
		return nil, err
	}
	if resp.IsErrorState() {
		return nil, fmt.Errorf("github status %d", resp.GetStatusCode())
	}
	return &release, nil
}

func isGithubURL(url string) bool {
	return strings.HasPrefix(url, "https://github.com/") ||
		strings.HasPrefix(url, "https://objects.githubusercontent.com/")
}

// compareVersions compares dotted numeric versions. Returns >0 when a is
// newer than b.
func compareVersions(a, b string) int {
	pa := parseVersion(a)
	pb := parseVersion(b)

	for len(pa) < len(pb) {
		pa = append(pa, 0)
	}
	for len(pb) < len(pa) {
		pb = append(pb, 0)
	}

	for i := range pa {
		if pa[i] != pb[i] {
			if pa[i] > pb[i] {
				return 1
			}
			return -1
		}
	}
	return 0
}

func parseVersion(v string) []int {
	parts := strings.Split(v, ".")
	nums := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return []int{0}
		}
		nums = append(nums, n)
	}
	return nums
}
