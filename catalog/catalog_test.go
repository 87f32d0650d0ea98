package catalog

import (
	"bytes"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ShoshinNikita/camoview/camoview"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "db", "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, store.Shutdown(t.Context()))
	})
	return store
}

var testRecords = []camoview.Record{
	{
		Nickname:    "panzer_fan",
		VehicleName: "Tiger I",
		Description: "Winter camo with whitewash",
		FileSize:    "12.5 MB",
		PostDate:    "2023-01-15",
		Hashtags:    []string{"winter", "german"},
		Downloads:   120,
		Likes:       15,
		ArchiveURL:  "https://example.com/tiger.zip",
		ImageURLs:   []string{"https://example.com/tiger1.png", "https://example.com/tiger2.png"},
	},
	{
		Nickname:    "desert_rat",
		VehicleName: "M4 Sherman",
		Description: "Desert pattern, 100% hand-painted",
		Hashtags:    []string{"desert", "american"},
		ArchiveURL:  "https://example.com/sherman.zip",
		ImageURLs:   []string{"https://example.com/sherman.png"},
	},
	{
		Nickname:    "panzer_fan",
		VehicleName: "Panther",
		Description: "Ambush pattern",
		Hashtags:    []string{"german", "summer"},
		ArchiveURL:  "https://example.com/panther.zip",
	},
}

func TestStore(t *testing.T) {
	t.Parallel()

	r := require.New(t)
	ctx := t.Context()

	store := newTestStore(t)

	n, err := store.Count(ctx)
	r.NoError(err)
	r.Zero(n)

	r.NoError(store.Insert(ctx, testRecords...))

	n, err = store.Count(ctx)
	r.NoError(err)
	r.Equal(3, n)

	t.Run("record by index", func(t *testing.T) {
		r := require.New(t)

		rec, ok, err := store.RecordByIndex(ctx, 0)
		r.NoError(err)
		r.True(ok)
		r.NotZero(rec.ID)
		rec.ID = 0
		r.Equal(testRecords[0], rec)

		rec, ok, err = store.RecordByIndex(ctx, 2)
		r.NoError(err)
		r.True(ok)
		r.Equal("Panther", rec.VehicleName)
		r.Empty(rec.ImageURLs)

		for _, i := range []int{-1, 3, 100} {
			_, ok, err = store.RecordByIndex(ctx, i)
			r.NoError(err)
			r.False(ok)
		}
	})

	t.Run("search", func(t *testing.T) {
		vehicles := func(records []camoview.Record) (res []string) {
			for _, rec := range records {
				res = append(res, rec.VehicleName)
			}
			return res
		}

		for _, tt := range []struct {
			query string
			tags  []string
			want  []string
		}{
			{query: "", want: []string{"Tiger I", "M4 Sherman", "Panther"}},
			{query: "tiger", want: []string{"Tiger I"}},
			{query: "pattern", want: []string{"M4 Sherman", "Panther"}},
			{query: "100%", want: []string{"M4 Sherman"}},
			{query: "_", want: nil},
			{tags: []string{"german"}, want: []string{"Tiger I", "Panther"}},
			{tags: []string{"german", "winter"}, want: []string{"Tiger I"}},
			{tags: []string{"germ"}, want: nil},
			{query: "pattern", tags: []string{"german"}, want: []string{"Panther"}},
		} {
			t.Run("", func(t *testing.T) {
				res, err := store.Search(ctx, tt.query, tt.tags)
				require.NoError(t, err)
				require.Equal(t, tt.want, vehicles(res))
			})
		}
	})

	t.Run("tags", func(t *testing.T) {
		tags, err := store.Tags(ctx)
		require.NoError(t, err)
		require.Equal(t, []string{"american", "desert", "german", "summer", "winter"}, tags)
	})
}

func TestStore_Reopen(t *testing.T) {
	t.Parallel()

	r := require.New(t)

	path := filepath.Join(t.TempDir(), "catalog.db")

	store, err := Open(path)
	r.NoError(err)
	r.NoError(store.Insert(t.Context(), testRecords[0]))
	r.NoError(store.Shutdown(t.Context()))

	store, err = Open(path)
	r.NoError(err)
	defer store.Shutdown(t.Context())

	n, err := store.Count(t.Context())
	r.NoError(err)
	r.Equal(1, n)
}

func TestStore_NullableColumns(t *testing.T) {
	t.Parallel()

	r := require.New(t)
	ctx := t.Context()

	path := filepath.Join(t.TempDir(), "catalog.db")

	// Databases created by the scraper have no NOT NULL constraints.
	db, err := sql.Open("sqlite3", path)
	r.NoError(err)
	_, err = db.Exec(`
		CREATE TABLE camouflages (
			vehicle_name TEXT, description TEXT, image_urls TEXT, zip_file_url TEXT, hashtags TEXT,
			file_size TEXT, num_downloads INTEGER, num_likes INTEGER, post_date TEXT, nickname TEXT
		);
		INSERT INTO camouflages (vehicle_name, zip_file_url) VALUES ('Tiger I', 'https://example.com/tiger.zip');
		INSERT INTO camouflages (vehicle_name, hashtags) VALUES ('Panther', 'german');`,
	)
	r.NoError(err)
	r.NoError(db.Close())

	store, err := Open(path)
	r.NoError(err)
	defer store.Shutdown(ctx)

	rec, ok, err := store.RecordByIndex(ctx, 0)
	r.NoError(err)
	r.True(ok)
	rec.ID = 0
	r.Equal(camoview.Record{VehicleName: "Tiger I", ArchiveURL: "https://example.com/tiger.zip"}, rec)

	res, err := store.Search(ctx, "", nil)
	r.NoError(err)
	r.Len(res, 2)

	res, err = store.Search(ctx, "panther", []string{"german"})
	r.NoError(err)
	r.Len(res, 1)

	tags, err := store.Tags(ctx)
	r.NoError(err)
	r.Equal([]string{"german"}, tags)
}

func TestStore_SearchBySpacedTags(t *testing.T) {
	t.Parallel()

	r := require.New(t)
	ctx := t.Context()

	store := newTestStore(t)

	// Other tools store tags separated by ", ".
	_, err := store.db.ExecContext(ctx, `
		INSERT INTO camouflages (vehicle_name, hashtags) VALUES
			('Tiger I', 'winter, german'),
			('Panther', ' german ,summer'),
			('KV-1', 'germany')`,
	)
	r.NoError(err)

	tags, err := store.Tags(ctx)
	r.NoError(err)
	r.Equal([]string{"german", "germany", "summer", "winter"}, tags)

	// Every listed tag must find its records.
	for tag, want := range map[string]int{"german": 2, "germany": 1, "summer": 1, "winter": 1} {
		res, err := store.Search(ctx, "", []string{tag})
		r.NoError(err)
		r.Len(res, want, "tag: %q", tag)
	}

	res, err := store.Search(ctx, "", []string{" winter ", "german"})
	r.NoError(err)
	r.Len(res, 1)
	r.Equal("Tiger I", res[0].VehicleName)
	r.Equal([]string{"winter", "german"}, res[0].Hashtags)
}

func TestStore_CustomTags(t *testing.T) {
	t.Parallel()

	r := require.New(t)
	ctx := t.Context()

	store := newTestStore(t)
	r.NoError(store.Insert(ctx, testRecords...))

	tags, err := store.CustomTags(ctx)
	r.NoError(err)
	r.Empty(tags)

	r.NoError(store.AddCustomTags(ctx, "ambush, skins ", "", "ambush"))
	r.NoError(store.AddCustomTags(ctx, "pacific"))

	tags, err = store.CustomTags(ctx)
	r.NoError(err)
	r.Equal([]string{"ambush", "pacific", "skins"}, tags)

	t.Run("export", func(t *testing.T) {
		r := require.New(t)

		buf := bytes.NewBuffer(nil)
		r.NoError(store.ExportTags(ctx, buf))
		r.Equal(""+
			"available_tags:\n"+
			"  - american\n"+
			"  - desert\n"+
			"  - german\n"+
			"  - summer\n"+
			"  - winter\n"+
			"custom_tags:\n"+
			"  - ambush\n"+
			"  - pacific\n"+
			"  - skins\n",
			buf.String(),
		)
	})

	t.Run("import", func(t *testing.T) {
		r := require.New(t)

		other := newTestStore(t)

		n, err := other.ImportTags(ctx, strings.NewReader(`
available_tags: [winter]
custom_tags: [pacific, "night, ops", pacific]
`))
		r.NoError(err)
		r.Equal(3, n)

		tags, err := other.CustomTags(ctx)
		r.NoError(err)
		r.Equal([]string{"night", "ops", "pacific"}, tags)

		// Available tags come from the records only.
		tags, err = other.Tags(ctx)
		r.NoError(err)
		r.Empty(tags)

		// Import replaces existing custom tags.
		n, err = other.ImportTags(ctx, strings.NewReader("custom_tags: [arctic]"))
		r.NoError(err)
		r.Equal(1, n)

		tags, err = other.CustomTags(ctx)
		r.NoError(err)
		r.Equal([]string{"arctic"}, tags)

		_, err = other.ImportTags(ctx, strings.NewReader(""))
		r.Error(err)

		_, err = other.ImportTags(ctx, strings.NewReader("custom_tags: {a: b}"))
		r.Error(err)

		tags, err = other.CustomTags(ctx)
		r.NoError(err)
		r.Equal([]string{"arctic"}, tags)
	})
}

func TestImportYAML(t *testing.T) {
	t.Parallel()

	r := require.New(t)

	store := newTestStore(t)

	const data = `
- vehicle_name: Tiger I
  nickname: panzer_fan
  description: Winter camo
  hashtags: [winter, german]
  num_downloads: 10
  num_likes: 2
  zip_file_url: https://example.com/tiger.zip
  image_urls:
    - https://example.com/tiger1.png
    - https://example.com/tiger2.png
- vehicle_name: ""
  description: broken record
- vehicle_name: T-34
`
	n, err := ImportYAML(t.Context(), store, strings.NewReader(data))
	r.NoError(err)
	r.Equal(2, n)

	rec, ok, err := store.RecordByIndex(t.Context(), 0)
	r.NoError(err)
	r.True(ok)
	r.Equal("Tiger I", rec.VehicleName)
	r.Equal(10, rec.Downloads)
	r.Equal([]string{"winter", "german"}, rec.Hashtags)
	r.Equal([]string{"https://example.com/tiger1.png", "https://example.com/tiger2.png"}, rec.ImageURLs)

	rec, ok, err = store.RecordByIndex(t.Context(), 1)
	r.NoError(err)
	r.True(ok)
	r.Equal("T-34", rec.VehicleName)

	t.Run("empty input", func(t *testing.T) {
		n, err := ImportYAML(t.Context(), store, strings.NewReader(""))
		require.NoError(t, err)
		require.Zero(t, n)
	})

	t.Run("invalid input", func(t *testing.T) {
		_, err := ImportYAML(t.Context(), store, strings.NewReader("vehicle_name: not a list"))
		require.Error(t, err)
	})
}
