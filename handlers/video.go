package handlers

import (
	"net/http"

	"github.com/dustin/go-humanize"

	"github.com/andrewpaige1/doomdeck-api/viewer"
	"github.com/andrewpaige1/doomdeck-api/webutil"
)

// VideoPrefix is where the background videos are served from.
const VideoPrefix = "/videos/"

type videoResponse struct {
	Path      string `json:"path"`
	URL       string `json:"url"`
	Size      int64  `json:"size"`
	SizeHuman string `json:"sizeHuman"`
	Loaded    bool   `json:"loaded"`
}

func newVideoResponse(v viewer.Video) videoResponse {
	return videoResponse{
		Path:      v.Path,
		URL:       VideoPrefix + v.Path,
		Size:      v.Size,
		SizeHuman: humanize.Bytes(uint64(v.Size)),
		Loaded:    v.Loaded,
	}
}

// GET /api/videos
func (db *DBHandler) ListVideos(w http.ResponseWriter, r *http.Request) error {
	videos := db.Videos.Videos()
	response := make([]videoResponse, 0, len(videos))
	for _, v := range videos {
		response = append(response, newVideoResponse(v))
	}
	webutil.RespondWithJSON(w, http.StatusOK, response)
	return nil
}

// GET /api/videos/random
func (db *DBHandler) RandomVideo(w http.ResponseWriter, r *http.Request) error {
	video, ok := db.Videos.Random()
	if !ok {
		return webutil.ErrNotFound("No background video loaded")
	}
	webutil.RespondWithJSON(w, http.StatusOK, newVideoResponse(video))
	return nil
}

// POST /api/videos/{name}/preload
func (db *DBHandler) PreloadVideo(w http.ResponseWriter, r *http.Request) error {
	name := r.PathValue("name")
	if !db.Videos.Preload(name) {
		return webutil.ErrNotFound("Unknown video " + name)
	}
	webutil.RespondWithJSON(w, http.StatusOK, map[string]string{"preloaded": name})
	return nil
}
