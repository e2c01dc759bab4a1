package route

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"icsplit/src-server/utils"
)

func SPA(muxer *http.ServeMux, as *utils.AppState) {
	// NewConfig already warned about the missing env var
	staticWebClientDir := as.Config.GetStaticWebClientDir()
	if staticWebClientDir == "" {
		return
	}

	files := http.FS(os.DirFS(staticWebClientDir))
	indexFile, err := files.Open("index.html")
	if err != nil {
		slog.Error("Can't open index.html", "err", err)
		return
	}
	indexFileStat, err := indexFile.Stat()
	if err != nil {
		slog.Error("Can't get index.html stat", "err", err)
		return
	}

	muxer.HandleFunc("GET /{filepath...}", func(w http.ResponseWriter, r *http.Request) {
		filepath := filepath.Clean(r.PathValue("filepath"))
		switch filepath {
		case ".":
			filepath = "index.html"
		case "history":
			filepath = "history/index.html"
		case "404":
			filepath = "404.html"
		}

		file, err := files.Open(filepath)
		if err != nil {
			http.ServeContent(w, r, indexFileStat.Name(), indexFileStat.ModTime(), indexFile)
			return
		}

		stat, err := file.Stat()
		if err != nil {
			http.ServeContent(w, r, indexFileStat.Name(), indexFileStat.ModTime(), indexFile)
			return
		}

		http.ServeContent(w, r, stat.Name(), stat.ModTime(), file)
	})
}
