package downloader

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"net/url"
	"path"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/dop251/goja"
	urlutil "github.com/law-makers/scrapekit/internal/utils/url"
	"github.com/law-makers/scrapekit/pkg/models"
	"github.com/rs/zerolog/log"
)

// scriptBudget bounds the time spent evaluating a page's inline scripts.
const scriptBudget = 2 * time.Second

var videoExtensions = []string{".mp4", ".webm", ".mov", ".m4v", ".mkv", ".avi", ".flv", ".m3u8", ".mpd"}

var videoURLPattern = regexp.MustCompile(`https?://[^\s"'<>\\]+\.(?:mp4|m3u8|webm|mov|m4v)(?:\?[^\s"'<>\\]*)?`)

// discovery accumulates videos in page order, deduplicated by download URL.
type discovery struct {
	pageURL   string
	pageTitle string
	seen      map[string]int
	videos    []models.Video
}

func (d *discovery) add(v models.Video) {
	v.DownloadURL = urlutil.ResolveURL(d.pageURL, v.DownloadURL)
	if !isVideoURL(v.DownloadURL) {
		return
	}
	if v.Thumbnail != "" {
		v.Thumbnail = urlutil.ResolveURL(d.pageURL, v.Thumbnail)
	}

	if i, ok := d.seen[v.DownloadURL]; ok {
		// Later sources may know more about a video already found.
		existing := &d.videos[i]
		if existing.Title == "" {
			existing.Title = v.Title
		}
		if existing.Thumbnail == "" {
			existing.Thumbnail = v.Thumbnail
		}
		return
	}

	if v.ID == "" {
		v.ID = ShortHash(v.DownloadURL)
	}
	d.seen[v.DownloadURL] = len(d.videos)
	d.videos = append(d.videos, v)
}

// DiscoverVideos finds downloadable videos in a page: <video> and <source>
// tags, Open Graph video tags, JSON data blobs, and values assigned to
// globals by inline scripts. Relative URLs are resolved against pageURL.
func DiscoverVideos(html, pageURL string) ([]models.Video, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	d := &discovery{
		pageURL:   pageURL,
		pageTitle: strings.TrimSpace(doc.Find("title").First().Text()),
		seen:      make(map[string]int),
	}
	if og, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok && og != "" {
		d.pageTitle = strings.TrimSpace(og)
	}

	d.fromVideoTags(doc)
	d.fromOpenGraph(doc)
	d.fromJSONBlobs(doc)
	d.fromScripts(doc)

	for i := range d.videos {
		if d.videos[i].Title == "" {
			d.videos[i].Title = d.fallbackTitle(i)
		}
	}

	log.Debug().Str("url", pageURL).Int("videos", len(d.videos)).Msg("Video discovery finished")
	return d.videos, nil
}

func (d *discovery) fallbackTitle(i int) string {
	if d.pageTitle == "" {
		base := path.Base(mustPath(d.videos[i].DownloadURL))
		return strings.TrimSuffix(base, path.Ext(base))
	}
	if len(d.videos) == 1 {
		return d.pageTitle
	}
	return fmt.Sprintf("%s %d", d.pageTitle, i+1)
}

func (d *discovery) fromVideoTags(doc *goquery.Document) {
	doc.Find("video").Each(func(_ int, s *goquery.Selection) {
		v := models.Video{
			ID:        firstAttr(s, "id", "data-id", "data-video-id"),
			Title:     firstAttr(s, "title", "aria-label", "data-title"),
			Thumbnail: firstAttr(s, "poster"),
		}
		if src := firstAttr(s, "src", "data-src"); src != "" {
			v.DownloadURL = src
			d.add(v)
		}
		s.Find("source").Each(func(_ int, src *goquery.Selection) {
			if u := firstAttr(src, "src", "data-src"); u != "" {
				v.DownloadURL = u
				d.add(v)
			}
		})
	})
}

func (d *discovery) fromOpenGraph(doc *goquery.Document) {
	thumb, _ := doc.Find(`meta[property="og:image"]`).Attr("content")
	doc.Find(`meta[property="og:video"], meta[property="og:video:url"], meta[property="og:video:secure_url"]`).
		Each(func(_ int, s *goquery.Selection) {
			if u, ok := s.Attr("content"); ok && u != "" {
				d.add(models.Video{Title: d.pageTitle, Thumbnail: thumb, DownloadURL: u})
			}
		})
}

func (d *discovery) fromJSONBlobs(doc *goquery.Document) {
	doc.Find(`script[type="application/ld+json"], script#__NEXT_DATA__, script[type="application/json"]`).
		Each(func(_ int, s *goquery.Selection) {
			raw := strings.TrimSpace(s.Text())
			if raw == "" {
				return
			}
			var data any
			if err := json.Unmarshal([]byte(raw), &data); err != nil {
				for _, u := range videoURLPattern.FindAllString(raw, -1) {
					d.add(models.Video{DownloadURL: u})
				}
				return
			}
			d.walkJSON(data)
		})
}

// walkJSON collects schema.org VideoObjects and any string under a
// video-ish key.
func (d *discovery) walkJSON(data any) {
	switch v := data.(type) {
	case map[string]any:
		if typ, _ := v["@type"].(string); strings.EqualFold(typ, "VideoObject") {
			video := models.Video{
				ID:          jsonString(v, "identifier", "@id"),
				Title:       jsonString(v, "name", "headline"),
				Thumbnail:   jsonString(v, "thumbnailUrl"),
				DownloadURL: jsonString(v, "contentUrl", "embedUrl"),
			}
			if video.DownloadURL != "" {
				d.add(video)
			}
		}
		for _, key := range slices.Sorted(maps.Keys(v)) {
			value := v[key]
			k := strings.ToLower(key)
			if s, ok := value.(string); ok &&
				(strings.Contains(k, "video") || strings.Contains(k, "playback") || strings.Contains(k, "download")) {
				d.add(models.Video{DownloadURL: s})
			}
			d.walkJSON(value)
		}
	case []any:
		for _, item := range v {
			d.walkJSON(item)
		}
	case string:
		if isVideoURL(v) {
			d.add(models.Video{DownloadURL: v})
		}
	}
}

// fromScripts runs inline scripts in a bare JS VM and inspects the globals
// they leave behind. Scripts that touch a real DOM simply fail.
func (d *discovery) fromScripts(doc *goquery.Document) {
	var scripts []string
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		if _, external := s.Attr("src"); external {
			return
		}
		if t, ok := s.Attr("type"); ok && t != "" && !strings.Contains(t, "javascript") && t != "module" {
			return
		}
		if body := strings.TrimSpace(s.Text()); body != "" {
			scripts = append(scripts, body)
		}
	})
	if len(scripts) == 0 {
		return
	}

	vm := goja.New()
	baseline := make(map[string]bool)
	for _, k := range vm.GlobalObject().Keys() {
		baseline[k] = true
	}

	noop := func(goja.FunctionCall) goja.Value { return goja.Undefined() }
	_ = vm.Set("window", vm.GlobalObject())
	_ = vm.Set("self", vm.GlobalObject())
	_ = vm.Set("location", map[string]any{"href": d.pageURL})
	_ = vm.Set("document", map[string]any{"location": map[string]any{"href": d.pageURL}})
	_ = vm.Set("console", map[string]any{"log": noop, "warn": noop, "error": noop})
	for _, k := range []string{"window", "self", "location", "document", "console"} {
		baseline[k] = true
	}

	timer := time.AfterFunc(scriptBudget, func() { vm.Interrupt("script budget exceeded") })
	defer timer.Stop()

	for _, src := range scripts {
		if _, err := vm.RunString(src); err != nil {
			var interrupted *goja.InterruptedError
			if errors.As(err, &interrupted) {
				log.Debug().Str("url", d.pageURL).Msg("Inline script evaluation interrupted")
				break
			}
		}
	}

	for _, key := range vm.GlobalObject().Keys() {
		if baseline[key] {
			continue
		}
		exported := vm.Get(key).Export()
		switch val := exported.(type) {
		case string:
			d.add(models.Video{DownloadURL: val})
		case map[string]any, []any:
			d.walkJSON(val)
		}
	}
}

func isVideoURL(raw string) bool {
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	p := strings.ToLower(u.Path)
	for _, ext := range videoExtensions {
		if strings.HasSuffix(p, ext) {
			return true
		}
	}
	return strings.Contains(p, "/video/") || strings.Contains(p, "/videos/")
}

func firstAttr(s *goquery.Selection, names ...string) string {
	for _, n := range names {
		if v, ok := s.Attr(n); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func jsonString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case []any:
			if len(v) > 0 {
				if s, ok := v[0].(string); ok {
					return s
				}
			}
		}
	}
	return ""
}

func mustPath(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Path
}
