package library

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/ironsmile/localmedia/src/catalog"
	"github.com/ironsmile/localmedia/src/models"
)

// defaultDateFormat is used for `type=date` directories without a format.
const defaultDateFormat = "%Y-%m-%d"

// defaultRoles are the roles which artist listings include when the directory
// does not name one.
var defaultRoles = []catalog.Role{catalog.RoleArtist, catalog.RoleAlbumArtist}

// Browse lists the entries of a directory, artist or album URI. The root
// directory URI returns the configured directories.
func (p *Provider) Browse(ctx context.Context, uri string) []models.Ref {
	var (
		refs []models.Ref
		err  error
	)

	switch {
	case uri == RootDirectoryURI:
		refs = append(refs, p.cfg.Directories...)
	case strings.HasPrefix(uri, directoryPrefix):
		refs, err = p.browseDirectory(ctx, uri)
	case strings.HasPrefix(uri, artistPrefix):
		refs, err = p.browseArtist(ctx, uri)
	case strings.HasPrefix(uri, albumPrefix):
		refs, err = p.browseAlbum(ctx, uri)
	default:
		err = fmt.Errorf("invalid browse URI")
	}

	if err != nil {
		log.Error().Err(err).Str("uri", uri).Msg("error browsing")
		return []models.Ref{}
	}
	if refs == nil {
		refs = []models.Ref{}
	}

	return refs
}

// browseAlbum lists the tracks of an album in their album order.
func (p *Provider) browseAlbum(ctx context.Context, uri string) ([]models.Ref, error) {
	return catalog.Browse(ctx, p.db, catalog.BrowseTrack, catalog.OrderAlbumTracks, nil,
		[]catalog.Filter{{Key: catalog.FilterAlbum, Value: uri}},
	)
}

// browseArtist lists the albums of an artist followed by the tracks which are
// not on any album. Albums where the artist only appears on some tracks are
// returned as directories with just these tracks.
func (p *Provider) browseArtist(ctx context.Context, uri string) ([]models.Ref, error) {
	albums, err := catalog.Browse(ctx, p.db, catalog.BrowseAlbum, catalog.OrderDefault, nil,
		[]catalog.Filter{{Key: catalog.FilterAlbumArtist, Value: uri}},
	)
	if err != nil {
		return nil, err
	}

	refs, err := catalog.Browse(ctx, p.db, catalog.BrowseAny, catalog.OrderDefault, nil,
		[]catalog.Filter{{Key: catalog.FilterArtist, Value: uri}},
	)
	if err != nil {
		return nil, err
	}

	albumURIs := make(map[string]struct{}, len(albums))
	for _, ref := range albums {
		albumURIs[ref.URI] = struct{}{}
	}

	var tracks []models.Ref
	for _, ref := range refs {
		switch ref.Type {
		case models.RefAlbum:
			if _, ok := albumURIs[ref.URI]; ok {
				continue
			}
			albums = append(albums, models.DirectoryRef(
				directoryURI(params{
					{"type", string(models.RefTrack)},
					{"album", ref.URI},
					{"artist", uri},
				}),
				ref.Name,
			))
		case models.RefTrack:
			tracks = append(tracks, ref)
		default:
			log.Debug().Str("uri", ref.URI).Msg("skipped sqlite browse result")
		}
	}

	sort.SliceStable(albums, func(i, j int) bool {
		return albums[i].Name < albums[j].Name
	})

	return append(albums, tracks...), nil
}

// browseDirectory lists a synthetic directory. The directory query names the
// type of the listed entries and the filters which apply. Every entry which is
// not a leaf becomes a directory which keeps the filters collected so far.
func (p *Provider) browseDirectory(ctx context.Context, uri string) ([]models.Ref, error) {
	query, err := parseParams(uri)
	if err != nil {
		return nil, fmt.Errorf("parsing directory query: %w", err)
	}

	typ, _ := query.get("type")
	query = query.without("type")
	role, hasRole := query.get("role")
	query = query.without("role")

	switch typ {
	case "date":
		format, ok := query.get("format")
		if !ok {
			format = defaultDateFormat
		}
		dates, err := catalog.Dates(ctx, p.db, format)
		if err != nil {
			return nil, err
		}
		refs := make([]models.Ref, 0, len(dates))
		for _, date := range dates {
			refs = append(refs, models.DirectoryRef(directoryURI(params{{"date", date}}), date))
		}
		return refs, nil
	case "genre":
		genres, err := catalog.ListDistinct(ctx, p.db, "genre", nil)
		if err != nil {
			return nil, err
		}
		refs := make([]models.Ref, 0, len(genres))
		for _, genre := range genres {
			refs = append(refs, models.DirectoryRef(directoryURI(params{{"genre", genre}}), genre))
		}
		return refs, nil
	}

	order := catalog.OrderDefault
	if _, ok := query.get("album"); ok && typ == string(models.RefTrack) {
		order = catalog.OrderAlbumTracks
	}
	if typ == string(models.RefArtist) && p.cfg.UseArtistSortName {
		order = catalog.OrderArtistSortName
	}

	roles := defaultRoles
	roleKey := string(catalog.RoleArtist)
	if hasRole {
		roles = []catalog.Role{catalog.Role(role)}
		roleKey = role
	}

	filters := make([]catalog.Filter, 0, len(query))
	for _, q := range query {
		filters = append(filters, catalog.Filter{Key: catalog.FilterKey(q.key), Value: q.value})
	}

	found, err := catalog.Browse(ctx, p.db, catalog.BrowseType(typ), order, roles, filters)
	if err != nil {
		return nil, err
	}

	refs := make([]models.Ref, 0, len(found))
	for _, ref := range found {
		switch {
		case ref.Type == models.RefTrack || (len(query) == 0 && !hasRole):
			refs = append(refs, ref)
		case ref.Type == models.RefAlbum:
			refs = append(refs, models.DirectoryRef(
				directoryURI(query.with("type", string(models.RefTrack)).with("album", ref.URI)),
				ref.Name,
			))
		case ref.Type == models.RefArtist:
			refs = append(refs, models.DirectoryRef(
				directoryURI(query.with(roleKey, ref.URI)),
				ref.Name,
			))
		default:
			log.Warn().Interface("ref", ref).Msg("unexpected sqlite browse result")
		}
	}

	return refs, nil
}
