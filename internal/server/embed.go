package server

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed all:web
var embedFS embed.FS

//go:embed openapi.yaml
var openapiYAML []byte

// GetStaticFS は埋め込みの静的ファイルシステムを返す
func GetStaticFS() http.FileSystem {
	staticFS, err := fs.Sub(embedFS, "web")
	if err != nil {
		log.Fatalf("埋め込み静的ファイルシステムの作成に失敗: %v", err)
	}
	return http.FS(staticFS)
}

// getIndexHTML はindex.htmlの内容を返す
func getIndexHTML() []byte {
	data, err := embedFS.ReadFile("web/index.html")
	if err != nil {
		log.Fatalf("埋め込みindex.htmlの読み込みに失敗: %v", err)
	}
	return data
}

// LoadOpenAPI は埋め込みのOpenAPIドキュメントを読み込んで検証する
func LoadOpenAPI(ctx context.Context) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	loader.Context = ctx

	doc, err := loader.LoadFromData(openapiYAML)
	if err != nil {
		return nil, fmt.Errorf("OpenAPIドキュメントの読み込みに失敗: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("OpenAPIドキュメントが不正です: %w", err)
	}
	return doc, nil
}
