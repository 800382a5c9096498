package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ironsmile/localmedia/src/models"
)

// imageSizeRe extracts the dimensions from image names such as
// "<digest>-640x480.png".
var imageSizeRe = regexp.MustCompile(`.*-(\d+)x(\d+)\.(?:png|gif|jpeg|webp)$`)

// ImageURIs returns every image URI referenced by an album.
func ImageURIs(ctx context.Context, db DBTX) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT images FROM album WHERE images IS NOT NULL",
	)
	if err != nil {
		return nil, fmt.Errorf("querying album images: %w", err)
	}
	defer rows.Close()

	var uris []string
	for rows.Next() {
		var images string
		if err := rows.Scan(&images); err != nil {
			return nil, fmt.Errorf("scanning album images: %w", err)
		}
		uris = append(uris, strings.Fields(images)...)
	}

	return uris, rows.Err()
}

// AlbumImages returns the images of the album with this URI.
func AlbumImages(ctx context.Context, db DBTX, uri string) ([]models.Image, error) {
	return queryImages(ctx, db, "SELECT images FROM album WHERE uri = ?", uri)
}

// TrackImages returns the images of the album of the track with this URI.
func TrackImages(ctx context.Context, db DBTX, uri string) ([]models.Image, error) {
	return queryImages(ctx, db, `
		SELECT album.images AS images
		  FROM track
		  LEFT OUTER JOIN album ON track.album = album.uri
		 WHERE track.uri = ?
	`, uri)
}

func queryImages(ctx context.Context, db DBTX, query, uri string) ([]models.Image, error) {
	rows, err := db.QueryContext(ctx, query, uri)
	if err != nil {
		return nil, fmt.Errorf("querying images for %s: %w", uri, err)
	}
	defer rows.Close()

	images := []models.Image{}
	for rows.Next() {
		var field sql.NullString
		if err := rows.Scan(&field); err != nil {
			return nil, fmt.Errorf("scanning images for %s: %w", uri, err)
		}
		images = append(images, parseImages(field.String)...)
	}

	return images, rows.Err()
}

// parseImages splits a space separated list of image URIs.
func parseImages(field string) []models.Image {
	var images []models.Image
	for _, uri := range strings.Fields(field) {
		img := models.Image{URI: uri}
		if m := imageSizeRe.FindStringSubmatch(uri); m != nil {
			img.Width, _ = strconv.Atoi(m[1])
			img.Height, _ = strconv.Atoi(m[2])
		}
		images = append(images, img)
	}
	return images
}
