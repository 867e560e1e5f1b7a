package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/lumina_api/internal/cache"
	"github.com/GTDGit/lumina_api/internal/config"
	"github.com/GTDGit/lumina_api/internal/models"
	"github.com/GTDGit/lumina_api/internal/utils"
)

type channelFixture struct {
	svc        *ChannelService
	products   *fakeProducts
	posts      *fakePosts
	publisher  *fakePublisher
	copywriter *fakeCopywriter
}

func newChannelFixture(ps ...models.Product) *channelFixture {
	f := &channelFixture{
		products:  newFakeProducts(ps...),
		posts:     &fakePosts{},
		publisher: &fakePublisher{},
		copywriter: &fakeCopywriter{content: &models.MarketingContent{
			Headline:  "🎧 Sound <Pro>",
			SalesText: "Deep bass & clear highs.",
			CTA:       "Grab yours!",
			Offers:    []string{"Free shipping"},
			Hashtags:  []string{"#audio", "#deal"},
			VariantA:  "Benefits pitch",
			VariantB:  "Urgency pitch",
		}},
	}
	cfg := &config.Config{
		PublicBaseURL: "https://shop.example",
		Telegram:      config.TelegramConfig{ShopHandle: "@LuminaShop_bot", Website: "lumina.shop"},
	}
	f.svc = NewChannelService(f.products, f.posts, f.publisher, f.copywriter, cache.NewCatalogCache(nil, 0), cfg)
	f.svc.now = func() time.Time { return t0 }
	return f
}

func TestChannelService_PostProduct(t *testing.T) {
	f := newChannelFixture(models.Product{ID: 1, Title: "Headphones", Price: 100, Category: "Audio", ImageURL: "/uploads/a.png"})

	post, err := f.svc.PostProduct(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, models.ChannelPostSent, post.Status)
	require.NotNil(t, post.MessageID)
	assert.Equal(t, "101", *post.MessageID)
	assert.Equal(t, "Benefits pitch", *post.MarketingVariantA)
	assert.Equal(t, "Urgency pitch", *post.MarketingVariantB)

	require.Len(t, f.publisher.sent, 1)
	assert.Equal(t, "https://shop.example/uploads/a.png", f.publisher.sent[0].URL)
	assert.Contains(t, f.publisher.sent[0].Caption, "🎧 Sound &lt;Pro&gt;")

	require.Len(t, f.posts.posts, 1)
	stored := f.products.snapshot(1)
	require.NotNil(t, stored.ChannelPostedAt)
	assert.True(t, t0.Equal(*stored.ChannelPostedAt))
}

func TestChannelService_PostProductFailureIsLogged(t *testing.T) {
	f := newChannelFixture(models.Product{ID: 1, Title: "Headphones", Price: 100, Category: "Audio", ImageURL: "https://cdn.example/a.png"})
	f.publisher.err = errBoom

	post, err := f.svc.PostProduct(context.Background(), 1)
	var ext *utils.ExternalServiceError
	require.ErrorAs(t, err, &ext)
	assert.Equal(t, "telegram", ext.Service)

	require.NotNil(t, post)
	assert.Equal(t, models.ChannelPostFailed, post.Status)
	require.NotNil(t, post.Error)
	assert.Equal(t, "boom", *post.Error)
	assert.Nil(t, post.MessageID)

	require.Len(t, f.posts.posts, 1)
	assert.Equal(t, models.ChannelPostFailed, f.posts.posts[0].Status)
	assert.Nil(t, f.products.snapshot(1).ChannelPostedAt)

	_, err = f.svc.PostProduct(context.Background(), 99)
	assert.ErrorIs(t, err, utils.ErrNotFound)
}

func TestChannelService_TemplateWhenCopyFails(t *testing.T) {
	f := newChannelFixture(onSale(models.Product{ID: 1, Title: "Headphones", Price: 100, Category: "Audio"}, 80, t0.Add(time.Hour)))
	f.copywriter.err = errBoom

	post, err := f.svc.PostProduct(context.Background(), 1)
	require.NoError(t, err)
	assert.Contains(t, post.Caption, "🔥 Headphones")
	assert.Contains(t, post.Caption, "Headphones now for $80.")
	assert.Nil(t, post.MarketingVariantA)
}

func TestChannelService_PostNext(t *testing.T) {
	posted := t0.Add(-time.Hour)
	f := newChannelFixture(
		models.Product{ID: 1, Title: "Old", Price: 10, Category: "A", ChannelPostedAt: &posted},
		models.Product{ID: 2, Title: "Fresh", Price: 10, Category: "A"},
	)
	ctx := context.Background()

	post, err := f.svc.PostNext(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, *post.ProductID)

	// everything posted: newest is reposted
	post, err = f.svc.PostNext(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, *post.ProductID)

	recent, err := f.svc.ListPosts(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, 2, recent[0].ID)

	empty := newChannelFixture()
	post, err = empty.svc.PostNext(ctx)
	require.NoError(t, err)
	assert.Nil(t, post)
	assert.Empty(t, empty.publisher.sent)
}

func TestFormatCaption(t *testing.T) {
	content := &models.MarketingContent{
		Headline:  "Headline",
		SalesText: "Sales",
		CTA:       "Buy",
		Offers:    []string{"One", "Two"},
		Hashtags:  []string{"#a", "#b"},
	}

	t.Run("active sale", func(t *testing.T) {
		p := onSale(models.Product{ID: 1, Title: "T", Price: 300, Brand: strPtr("Acme"), Stock: intPtr(4)}, 199, t0.Add(time.Hour))
		caption := FormatCaption(&p, content, t0, "@shop", "shop.example")

		assert.Contains(t, caption, "💥 <s>$300</s> <b>$199</b> SALE -34%!")
		assert.Contains(t, caption, "🏷 Brand: Acme")
		assert.Contains(t, caption, "📦 4 in stock")
		assert.Contains(t, caption, "✅ One\n✅ Two")
		assert.Contains(t, caption, "#a #b")
		assert.Contains(t, caption, "🛒 Order: @shop\n🌐 Website: shop.example")
	})

	t.Run("expired sale shows base price", func(t *testing.T) {
		p := onSale(models.Product{ID: 1, Title: "T", Price: 300, Stock: intPtr(0)}, 199, t0.Add(-time.Minute))
		caption := FormatCaption(&p, content, t0, "@shop", "shop.example")

		assert.Contains(t, caption, "💰 <b>$300</b>")
		assert.NotContains(t, caption, "<s>")
		assert.Contains(t, caption, "⚠️ Sold out")
		assert.NotContains(t, caption, "Brand:")
	})

	t.Run("video link is escaped", func(t *testing.T) {
		p := models.Product{ID: 1, Title: "T", Price: 5, VideoURL: strPtr(`https://v.example/?a=1&b="2"`)}
		caption := FormatCaption(&p, content, t0, "@shop", "shop.example")

		assert.Contains(t, caption, `<a href="https://v.example/?a=1&amp;b=&#34;2&#34;">Watch video</a>`)
	})
}
