package content

import (
	"math"
	"testing"
	"time"

	"github.com/robwestplumbing/sitecms/internal/docstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiffFieldGranularity(t *testing.T) {
	base := Defaults()
	next := base.Clone()
	next.Home.HeroTitle = "New"
	next.About.Team = append(next.About.Team, NewTeamMember())

	diff := Diff(ToFields(base), ToFields(next))
	assert.Equal(t, []string{"about.team", "home.heroTitle"}, ChangedPaths(diff))
}

func TestRebaseKeepsLocalEditsAndTakesRemote(t *testing.T) {
	base := Defaults()

	draft := base.Clone()
	draft.Home.HeroTitle = "Local edit"

	live := base.Clone()
	live.Services.Title = "Remote edit"

	got := RebaseContent(base, draft, live)
	assert.Equal(t, "Local edit", got.Home.HeroTitle)
	assert.Equal(t, "Remote edit", got.Services.Title)
}

func TestRebaseSameFieldLocalWins(t *testing.T) {
	base := Defaults()
	draft := base.Clone()
	draft.Home.HeroTitle = "mine"
	live := base.Clone()
	live.Home.HeroTitle = "theirs"

	assert.Equal(t, "mine", RebaseContent(base, draft, live).Home.HeroTitle)
}

func TestCoreFieldsStripsOverflow(t *testing.T) {
	c := Defaults()
	c.Global.Logo = "data:image/jpeg;base64,AAAA"
	c.About.Images = []ImageRef{"u1"}

	core := CoreFields(c)
	global := core[SectionGlobal].(map[string]any)
	_, hasLogo := global["logo"]
	assert.False(t, hasLogo)
	assert.Equal(t, "(773) 290-8232", global["phone"])
	for _, s := range ImageSections {
		_, has := core[s].(map[string]any)["images"]
		assert.False(t, has, s)
	}
	_, hasTeam := core[SectionAbout].(map[string]any)["team"]
	assert.True(t, hasTeam)
}

func TestValidate(t *testing.T) {
	c := Defaults()
	require.NoError(t, Validate(c))

	missing := c.Clone()
	missing.Pages = missing.Pages[1:]
	assert.Error(t, Validate(missing))

	dup := c.Clone()
	dup.Pages = append(dup.Pages, PageDescriptor{ID: "faq", Label: "FAQ", Kind: PageCustom})
	dup.Pages = append(dup.Pages, PageDescriptor{ID: "faq", Label: "FAQ", Kind: PageCustom})
	assert.Error(t, Validate(dup))

	var empty SiteContent
	assert.Error(t, Validate(empty))
}

func TestImageWrites(t *testing.T) {
	items := []GalleryItem{
		{ID: "g1", URL: "a", Section: SectionAbout},
		{ID: "g2", URL: "b", Section: SectionAbout},
		{ID: "g3", URL: "b", Section: SectionAbout},
		{ID: "g4", URL: "a", Section: ""},
		{ID: "g5", URL: "h", Section: SectionHome},
		{ID: "g6", URL: "other", Section: SectionAbout},
	}
	base := Defaults()
	base.About.Images = []ImageRef{"a", "b", "b"}
	base.Home.Images = []ImageRef{"h"}

	draft := base.Clone()
	draft.About.Images = []ImageRef{"b", "c", "a"}

	adds, deletes := ImageWrites(base, draft, items)
	assert.Equal(t, []ImageAdd{{Section: SectionAbout, URL: "c"}}, adds)
	assert.Equal(t, []string{"g2"}, deletes, "g6 was never part of the draft and stays")

	adds, deletes = ImageWrites(base, base.Clone(), items)
	assert.Empty(t, adds)
	assert.Empty(t, deletes)
}

func TestImageWritesAppendsUnbackedImages(t *testing.T) {
	base := Defaults()
	base.Home.Images = []ImageRef{"legacy"}
	draft := base.Clone()

	adds, deletes := ImageWrites(base, draft, nil)
	assert.Equal(t, []ImageAdd{{Section: SectionHome, URL: "legacy"}}, adds)
	assert.Empty(t, deletes)
}

func TestRebaseImages(t *testing.T) {
	tests := []struct {
		name              string
		base, draft, live []ImageRef
		want              []ImageRef
	}{
		{"remote add survives local remove", []ImageRef{"x"}, []ImageRef{}, []ImageRef{"x", "y"}, []ImageRef{"y"}},
		{"local add after remote add", []ImageRef{"x"}, []ImageRef{"x", "z"}, []ImageRef{"x", "y"}, []ImageRef{"x", "y", "z"}},
		{"remove already gone", []ImageRef{"x"}, []ImageRef{}, []ImageRef{}, []ImageRef{}},
		{"untouched follows live", []ImageRef{"x"}, []ImageRef{"x"}, []ImageRef{"y"}, []ImageRef{"y"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RebaseImages(tt.base, tt.draft, tt.live))
		})
	}
}

func TestRebaseContentKeepsConcurrentImages(t *testing.T) {
	base := Defaults()
	base.Home.Images = []ImageRef{"x"}
	draft := base.Clone()
	draft.Home.Images = []ImageRef{}
	live := base.Clone()
	live.Home.Images = []ImageRef{"x", "y"}

	assert.Equal(t, []ImageRef{"y"}, RebaseContent(base, draft, live).Home.Images)
}

func TestJoinGallery(t *testing.T) {
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	items := []GalleryItem{
		{ID: "p2", URL: "pub2", CreatedAt: t0.Add(4 * time.Minute)},
		{ID: "s2", URL: "second", Section: SectionServices, CreatedAt: t0.Add(3 * time.Minute)},
		{ID: "p1", URL: "pub1", CreatedAt: t0.Add(2 * time.Minute)},
		{ID: "s1", URL: "first", Section: SectionServices, CreatedAt: t0.Add(time.Minute)},
	}
	c := Defaults()
	public := JoinGallery(&c, items)

	assert.Equal(t, []ImageRef{"first", "second"}, c.Services.Images)
	assert.Empty(t, c.About.Images)
	require.Len(t, public, 2)
	assert.Equal(t, "p2", public[0].ID)
}

func TestItemsFromSnapshots(t *testing.T) {
	created := time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC)
	r := ReviewFromSnapshot(docstore.DocumentSnapshot{
		ID: "r1",
		Fields: docstore.Fields{
			"name": "Ann", "rating": "4", "text": "Great",
			"createdAt": created.Format(docstore.TimestampLayout),
		},
	})
	assert.Equal(t, Review{ID: "r1", Name: "Ann", Rating: 4, Text: "Great", CreatedAt: created}, r)

	missing := ReviewFromSnapshot(docstore.DocumentSnapshot{ID: "r2", CreateTime: created, Fields: docstore.Fields{}})
	assert.Equal(t, DefaultRating, missing.Rating)
	assert.Equal(t, created, missing.CreatedAt)

	g := GalleryItemFromSnapshot(docstore.DocumentSnapshot{
		ID:     "g1",
		Fields: docstore.Fields{"url": "https://x/y.jpg", "uploadedBy": "u1", "folder": "jobs"},
	})
	assert.Equal(t, ImageRef("https://x/y.jpg"), g.URL)
	assert.Equal(t, "jobs", g.Folder)
}

func TestRatingFieldOutOfRange(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want int
	}{
		{"huge", 1e30, MaxRating},
		{"huge negative", -1e30, MinRating},
		{"infinite", math.Inf(1), MaxRating},
		{"not a number", math.NaN(), DefaultRating},
		{"fraction", 3.7, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ratingField(tt.in))
		})
	}
}

func TestClampRating(t *testing.T) {
	assert.Equal(t, 5, ClampRating(7))
	assert.Equal(t, 1, ClampRating(0))
	assert.Equal(t, 1, ClampRating(-3))
	assert.Equal(t, 3, ClampRating(3))
}
