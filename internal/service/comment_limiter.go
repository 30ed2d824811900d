package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go-portfolio-cms/internal/config"
	"go-portfolio-cms/internal/metrics"
	"go-portfolio-cms/internal/model"
)

const denyReason = "rate limit exceeded for this window"

type recentCommentCounter interface {
	CountRecent(ctx context.Context, articleID uint, ip string, since time.Time, until time.Time) (int64, error)
}

// CommentRateLimiter admits or rejects a comment write based on how many
// comments the same IP left on the same article inside the window.
//
// Storage errors fail open: a broken counter must not take the comment
// surface down with it. An error classified as ErrRateLimited is the one
// exception and denies.
type CommentRateLimiter struct {
	cfg       config.CommentLimitConfig
	counter   recentCommentCounter
	metrics   *metrics.Metrics
	now       func() time.Time
	whitelist map[string]struct{}
}

func NewCommentRateLimiter(cfg config.CommentLimitConfig, counter recentCommentCounter, m *metrics.Metrics) *CommentRateLimiter {
	whitelist := make(map[string]struct{}, len(cfg.Whitelist))
	for _, ip := range cfg.Whitelist {
		whitelist[ip] = struct{}{}
	}

	return &CommentRateLimiter{
		cfg:       cfg,
		counter:   counter,
		metrics:   m,
		now:       func() time.Time { return time.Now().UTC() },
		whitelist: whitelist,
	}
}

func (l *CommentRateLimiter) Decide(ctx context.Context, articleID uint, ip string, isAdmin bool) model.RateDecision {
	if !l.cfg.Enabled {
		l.metrics.LimiterDecision(metrics.DecisionExempt)
		return model.RateDecision{Allowed: true}
	}

	if _, ok := l.whitelist[ip]; ok {
		l.metrics.LimiterDecision(metrics.DecisionExempt)
		return model.RateDecision{Allowed: true}
	}

	if l.cfg.ExemptAdmin && isAdmin {
		l.metrics.LimiterDecision(metrics.DecisionExempt)
		return model.RateDecision{Allowed: true}
	}

	now := l.now()
	since := now.Add(-time.Duration(l.cfg.WindowHours) * time.Hour)
	count, err := l.counter.CountRecent(ctx, articleID, ip, since, now)
	if err != nil {
		if errors.Is(err, model.ErrRateLimited) {
			l.metrics.LimiterDecision(metrics.DecisionDenied)
			return model.RateDecision{Allowed: false, Reason: denyReason}
		}

		slog.Warn("comment limiter check failed, allowing",
			"article_id", articleID,
			"ip", ip,
			"error", err,
		)
		l.metrics.LimiterDecision(metrics.DecisionFailOpen)
		return model.RateDecision{Allowed: true}
	}

	if count >= int64(l.cfg.MaxComments) {
		l.metrics.LimiterDecision(metrics.DecisionDenied)
		return model.RateDecision{Allowed: false, Reason: denyReason}
	}

	l.metrics.LimiterDecision(metrics.DecisionAllowed)
	return model.RateDecision{Allowed: true}
}

func (l *CommentRateLimiter) Info() model.CommentLimitInfo {
	whitelist := make([]string, len(l.cfg.Whitelist))
	copy(whitelist, l.cfg.Whitelist)

	return model.CommentLimitInfo{
		Enabled:     l.cfg.Enabled,
		WindowHours: l.cfg.WindowHours,
		MaxComments: l.cfg.MaxComments,
		ExemptAdmin: l.cfg.ExemptAdmin,
		Whitelist:   whitelist,
	}
}
