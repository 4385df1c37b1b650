package prefetch_test

import (
	"database/sql"
	"testing"

	"github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"pollex.nl/prefetch"
)

type Artist struct {
	ID          uint64
	Name        string
	Albums      []Album
	AlbumCount  int64
	AvgDuration float64
}

type Label struct {
	ID   uint64
	Name string
}

type Genre struct {
	ID   uint64
	Name string
}

type Track struct {
	ID       uint64
	Title    string
	AlbumID  uint64
	Duration int64
}

type Album struct {
	ID       uint64
	Title    string
	ArtistID uint64
	LabelID  uint64
	Label    Label
	Genres   []Genre
	Tracks   []Track
}

var (
	labelSchema = prefetch.New[Label]("labels", "id").
			AddSimpleField("id", func(t *Label) any { return &t.ID }).
			AddSimpleField("name", func(t *Label) any { return &t.Name })

	genreSchema = prefetch.New[Genre]("genres", "id").
			AddSimpleField("id", func(t *Genre) any { return &t.ID }).
			AddSimpleField("name", func(t *Genre) any { return &t.Name })

	trackSchema = prefetch.New[Track]("tracks", "id").
			AddSimpleField("id", func(t *Track) any { return &t.ID }).
			AddSimpleField("title", func(t *Track) any { return &t.Title }).
			AddSimpleField("album_id", func(t *Track) any { return &t.AlbumID }).
			AddSimpleField("duration", func(t *Track) any { return &t.Duration })

	albumSchema = prefetch.New[Album]("albums", "id").
			AddSimpleField("id", func(t *Album) any { return &t.ID }).
			AddSimpleField("title", func(t *Album) any { return &t.Title }).
			AddSimpleField("artist_id", func(t *Album) any { return &t.ArtistID }).
			AddSimpleField("label_id", func(t *Album) any { return &t.LabelID }).
			AddJoin("label", prefetch.JoinConfig{
			Table:        "labels",
			Column:       "id",
			ParentTable:  "albums",
			ParentColumn: "label_id",
		}).
		AddRelation("label",
			prefetch.BelongsTo(labelSchema, "label",
				func(album *Album, label Label) { album.Label = label },
			),
		).
		AddRelation("genres",
			prefetch.ManyToMany(genreSchema, "album_genres", "album_id", "genre_id",
				func(album Album) uint64 { return album.ID },
				func(album *Album, genres []Genre) { album.Genres = genres },
				prefetch.DependsOn("id"),
			),
		).
		AddRelation("tracks",
			prefetch.HasMany(trackSchema,
				func(album Album, track Track) bool { return track.AlbumID == album.ID },
				func(album *Album, tracks []Track) { album.Tracks = tracks },
				prefetch.WhereIDs("album_id", func(album Album) uint64 { return album.ID }),
				prefetch.DependsOn("id", "tracks.album_id"),
			),
		)

	artistSchema = prefetch.New[Artist]("artists", "id").
			AddSimpleField("id", func(t *Artist) any { return &t.ID }).
			AddSimpleField("name", func(t *Artist) any { return &t.Name }).
			AddJoin("albums", prefetch.JoinConfig{
			Table:        "albums",
			Column:       "artist_id",
			ParentTable:  "artists",
			ParentColumn: "id",
		}).
		AddJoin("tracks", prefetch.JoinConfig{
			Table:        "tracks",
			Column:       "album_id",
			ParentTable:  "albums",
			ParentColumn: "id",
		}).
		AddAggregate("album_count", prefetch.Aggregate[Artist]{
			Expr:    "COUNT(DISTINCT albums.id)",
			RowScan: prefetch.Ptr(func(t *Artist) any { return &t.AlbumCount }),
			Joins:   []string{"albums"},
		}).
		AddAggregate("avg_duration", prefetch.Aggregate[Artist]{
			Expr:    "AVG(tracks.duration)",
			RowScan: prefetch.NullFloat(func(t *Artist, v float64) { t.AvgDuration = v }),
			Joins:   []string{"albums", "tracks"},
		}).
		AddRelation("albums",
			prefetch.HasMany(albumSchema,
				func(artist Artist, album Album) bool { return album.ArtistID == artist.ID },
				func(artist *Artist, albums []Album) { artist.Albums = albums },
				prefetch.WhereIDs("artist_id", func(artist Artist) uint64 { return artist.ID }),
				prefetch.DependsOn("id", "albums.artist_id"),
			),
		)
)

func setupDB(t testing.TB) (*sql.DB, squirrel.StatementBuilderType) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(migrate)
	require.NoError(t, err)

	sq := squirrel.StatementBuilder.RunWith(db)

	return db, sq
}

const migrate = `
	create table artists (
		id integer not null,
		name text not null
	);
	create table labels (
		id integer not null,
		name text not null
	);
	create table albums (
		id integer not null,
		title text not null,
		artist_id integer not null,
		label_id integer not null
	);
	create table genres (
		id integer not null,
		name text not null
	);
	create table album_genres (
		album_id integer not null,
		genre_id integer not null
	);
	create table tracks (
		id integer not null,
		title text not null,
		album_id integer not null,
		duration integer not null
	);
	`

//nolint:errcheck
func seedFixtures(sq squirrel.StatementBuilderType) {
	sq.Insert("artists").
		Values(1, "Jeff").
		Values(2, "Madonna").Exec()
	sq.Insert("labels").
		Values(1, "Polydor").
		Values(2, "Harvest").Exec()
	sq.Insert("albums").
		Values(1, "Life of Jeff", 1, 1).
		Values(2, "Cooking like Jeff", 1, 2).
		Values(3, "Sing baby sing", 2, 2).Exec()
	sq.Insert("genres").
		Values(1, "rock").
		Values(2, "pop").
		Values(3, "ambient").Exec()
	sq.Insert("album_genres").
		Values(1, 1).
		Values(1, 3).
		Values(2, 2).
		Values(3, 2).Exec()
	sq.Insert("tracks").
		Values(1, "Intro", 1, 120).
		Values(2, "Outro", 1, 240).
		Values(3, "Stew", 2, 300).
		Values(4, "Sing", 3, 180).Exec()
}
