package publish

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"learntube-pipeline/config"
	"learntube-pipeline/types"
)

// Uploader handles YouTube video upload via Data API v3
type Uploader struct {
	cfg  *config.Config
	opts []option.ClientOption
}

// New creates a new Uploader. opts are appended after the OAuth client option.
func New(cfg *config.Config, opts ...option.ClientOption) *Uploader {
	return &Uploader{cfg: cfg, opts: opts}
}

// Run uploads the final video to YouTube with its metadata
func (u *Uploader) Run(ctx context.Context, videoFile string, metadata *types.VideoMetadata) (string, string, error) {
	log.Println("[publish] Authenticating with YouTube API...")

	client, err := u.oauthClient(ctx)
	if err != nil {
		return "", "", fmt.Errorf("youtube auth: %w", err)
	}

	opts := append([]option.ClientOption{option.WithHTTPClient(client)}, u.opts...)
	svc, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return "", "", fmt.Errorf("youtube service: %w", err)
	}

	f, err := os.Open(videoFile)
	if err != nil {
		return "", "", fmt.Errorf("open video file: %w", err)
	}
	defer f.Close()

	if fi, err := f.Stat(); err == nil {
		log.Printf("[publish] Uploading %q (%.1f MB)", metadata.Title, float64(fi.Size())/1024/1024)
	}

	call := svc.Videos.Insert([]string{"snippet", "status"}, u.BuildVideo(metadata))
	call.NotifySubscribers(u.cfg.Upload.NotifySubscribers)
	call.Media(f)

	uploaded, err := call.Context(ctx).Do()
	if err != nil {
		return "", "", fmt.Errorf("youtube upload: %w", err)
	}

	videoURL := fmt.Sprintf("https://www.youtube.com/watch?v=%s", uploaded.Id)
	log.Printf("[publish] ✅ Uploaded: %s", videoURL)
	return uploaded.Id, videoURL, nil
}

// BuildVideo converts metadata to the API resource.
func (u *Uploader) BuildVideo(metadata *types.VideoMetadata) *youtube.Video {
	visibility := metadata.Visibility
	if visibility == "" {
		visibility = u.cfg.Upload.Visibility
	}
	categoryID := metadata.CategoryID
	if categoryID == "" {
		categoryID = u.cfg.Upload.CategoryID
	}
	return &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:                metadata.Title,
			Description:          metadata.Description,
			Tags:                 metadata.Tags,
			CategoryId:           categoryID,
			DefaultLanguage:      u.cfg.Upload.DefaultLanguage,
			DefaultAudioLanguage: u.cfg.Upload.DefaultLanguage,
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus:           visibility,
			SelfDeclaredMadeForKids: u.cfg.Upload.MadeForKids,
			ForceSendFields:         []string{"SelfDeclaredMadeForKids"},
		},
	}
}

// oauthClient builds an HTTP client from the refresh token in the environment.
func (u *Uploader) oauthClient(ctx context.Context) (*http.Client, error) {
	up := u.cfg.Upload
	if up.ClientID == "" || up.ClientSecret == "" || up.RefreshToken == "" {
		return nil, fmt.Errorf("YOUTUBE_CLIENT_ID, YOUTUBE_CLIENT_SECRET, or YOUTUBE_REFRESH_TOKEN not set")
	}

	conf := &oauth2.Config{
		ClientID:     up.ClientID,
		ClientSecret: up.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{youtube.YoutubeUploadScope},
	}
	token := &oauth2.Token{
		RefreshToken: up.RefreshToken,
		Expiry:       time.Now().Add(-time.Hour), // force refresh
	}
	return oauth2.NewClient(ctx, conf.TokenSource(ctx, token)), nil
}
