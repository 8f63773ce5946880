package handlers

import (
	"net/http"

	"clipforge/internal/domain"
	"clipforge/pkg/archive"
)

// VideosExport bundles a completed video's enhancement artifacts into a zip
// download. Only completed videos have artifacts to export.
func (a *App) VideosExport(w http.ResponseWriter, r *http.Request) {
	video, ok := a.ownedVideo(w, r)
	if !ok {
		return
	}
	if video.Status != domain.VideoStatusCompleted {
		a.error(w, http.StatusConflict, "conflict", "video has no completed enhancement to export")
		return
	}

	entries := []archive.Entry{
		{Filename: "transcript.txt", Data: []byte(video.Artifacts.Transcript)},
		{Filename: "ai_script.txt", Data: []byte(video.Artifacts.AIScript)},
		{Filename: "captions.json", Data: video.Artifacts.Captions},
		{Filename: "cuts.json", Data: video.Artifacts.Cuts},
		{Filename: "zoom_points.json", Data: video.Artifacts.ZoomPoints},
	}
	if key := video.Artifacts.Voiceover; key != "" && a.Blobs != nil {
		if data, err := a.Blobs.Read(r.Context(), key); err == nil {
			entries = append(entries, archive.Entry{Filename: "voiceover.mp3", Data: data})
		} else {
			a.Logger.Warn().Err(err).Str("video_id", video.ID).Msg("voiceover blob missing from export")
		}
	}

	bundle, err := archive.Bundle(entries)
	if err != nil {
		a.Logger.Error().Err(err).Str("video_id", video.ID).Msg("bundle artifacts failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to build export")
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+video.ID+`-artifacts.zip"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(bundle)
}
