package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_shop/internal/cache"
	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type CartService struct {
	repo    repository.CartRepository
	catalog repository.CatalogRepository
	cache   cache.CartCache
	locks   *CartLocks
	logger  *zap.Logger
	sfg     singleflight.Group // Prevents cache stampede
}

func NewCartService(repo repository.CartRepository, catalog repository.CatalogRepository, cartCache cache.CartCache, locks *CartLocks, logger *zap.Logger) *CartService {
	return &CartService{
		repo:    repo,
		catalog: catalog,
		cache:   cartCache,
		locks:   locks,
		logger:  logger,
	}
}

func (s *CartService) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	// Use singleflight to prevent multiple concurrent cache misses for same key
	v, err, _ := s.sfg.Do(userID, func() (interface{}, error) {
		cart, err := s.cache.Get(ctx, userID)
		if err == nil {
			return cart, nil // cart is in cache
		}

		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("cache get failed", zap.String("user_id", userID), zap.Error(err))
		}

		cart, errGet := s.repo.GetCart(ctx, userID)
		if errors.Is(errGet, repository.ErrCartNotFound) {
			// No cart yet reads as an empty one
			return &domain.Cart{
				UserID:    userID,
				Items:     nil,
				CreatedAt: time.Now(),
				UpdatedAt: time.Now(),
			}, nil
		}
		if errGet != nil {
			return nil, errGet
		}

		go func() {
			if errSet := s.cache.Set(context.Background(), userID, cart); errSet != nil {
				s.logger.Warn("cache set failed", zap.String("user_id", userID), zap.Error(errSet))
			}
		}()

		return cart, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*domain.Cart), nil
}

// Snapshot reads the cart straight from the repository, skipping the
// cache. Checkout must never price stale data.
func (s *CartService) Snapshot(ctx context.Context, userID string) (*domain.Cart, error) {
	return s.repo.GetCart(ctx, userID)
}

func (s *CartService) AddItem(ctx context.Context, userID string, productID int64, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if _, err := s.catalog.GetProduct(ctx, productID); err != nil {
		return fmt.Errorf("product check failed: %w", err)
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	item := domain.CartItem{ProductID: productID, Quantity: quantity}
	if err := s.repo.AddItem(ctx, userID, item); err != nil {
		s.logger.Error("repo add item failed", zap.String("user_id", userID), zap.Error(err))
		return err
	}

	s.invalidateCache(userID)
	return nil
}

func (s *CartService) UpdateQuantity(ctx context.Context, userID string, productID int64, quantity int) error {
	if quantity < 0 {
		return ErrInvalidQuantity
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	var err error
	if quantity == 0 {
		// Zero quantity removes the line
		err = s.repo.RemoveItem(ctx, userID, productID)
	} else {
		err = s.repo.UpdateItemQuantity(ctx, userID, productID, quantity)
	}
	if err != nil {
		s.logger.Error("repo update quantity failed", zap.String("user_id", userID), zap.Error(err))
		return err
	}

	s.invalidateCache(userID)
	return nil
}

func (s *CartService) RemoveItem(ctx context.Context, userID string, productID int64) error {
	unlock := s.locks.Lock(userID)
	defer unlock()

	if err := s.repo.RemoveItem(ctx, userID, productID); err != nil {
		s.logger.Error("repo remove item failed", zap.String("user_id", userID), zap.Error(err))
		return err
	}

	s.invalidateCache(userID)
	return nil
}

// ClearCart drops the cart and its cache entry. Clearing a cart that does
// not exist succeeds, so the operation is idempotent.
func (s *CartService) ClearCart(ctx context.Context, userID string) error {
	unlock := s.locks.Lock(userID)
	defer unlock()

	return s.clearCart(ctx, userID)
}

// clearCart is the lock-free core of ClearCart. Checkout calls it while
// already holding the owner's cart lock.
func (s *CartService) clearCart(ctx context.Context, userID string) error {
	if err := s.repo.DeleteCart(ctx, userID); err != nil && !errors.Is(err, repository.ErrCartNotFound) {
		s.logger.Error("repo delete cart failed", zap.String("user_id", userID), zap.Error(err))
		return err
	}

	s.invalidateCache(userID)
	return nil
}

func (s *CartService) invalidateCache(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := s.cache.Delete(ctx, userID); err != nil {
		s.logger.Warn("cache invalidate failed", zap.String("user_id", userID), zap.Error(err))
	}
}
