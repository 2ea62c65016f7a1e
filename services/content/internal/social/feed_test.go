package social

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedServesFallbackWhenEmpty(t *testing.T) {
	feed := NewFeed(NewScraper(""), nil)

	posts := feed.Posts()

	require.NotEmpty(t, posts)
	assert.Equal(t, "fallback-1", posts[0].ID)
}

func TestRefreshFailureKeepsFeedIntact(t *testing.T) {
	// empty page URL makes every fetch fail
	feed := NewFeed(NewScraper(""), nil)

	feed.Refresh(context.Background())

	posts := feed.Posts()
	require.NotEmpty(t, posts)
	assert.Equal(t, "fallback-1", posts[0].ID)
}

func TestScraperRequiresPageURL(t *testing.T) {
	_, err := NewScraper("").Fetch(context.Background())
	assert.Error(t, err)
}

func TestOgTagExtraction(t *testing.T) {
	body := `<html><head>
		<meta property="og:title" content="Municipality of San Isidro"/>
		<meta property="og:description" content="Fiesta 2026 schedule released"/>
		<meta property="og:image" content="https://cdn.example.com/fiesta.jpg"/>
		<meta property="og:url" content="https://social.example.com/sanisidro"/>
	</head></html>`

	assert.Equal(t, "Municipality of San Isidro", ogTitlePattern.FindStringSubmatch(body)[1])
	assert.Equal(t, "Fiesta 2026 schedule released", ogDescPattern.FindStringSubmatch(body)[1])
	assert.Equal(t, "https://cdn.example.com/fiesta.jpg", ogImagePattern.FindStringSubmatch(body)[1])
	assert.Equal(t, "https://social.example.com/sanisidro", ogURLPattern.FindStringSubmatch(body)[1])
}
