// ***************************************************************************
//
//  Copyright 2017 David (Dizzy) Smith, dizzyd@dizzyd.com
//
//  Licensed under the Apache License, Version 2.0 (the "License");
//  you may not use this file except in compliance with the License.
//  You may obtain a copy of the License at
//
//       http://www.apache.org/licenses/LICENSE-2.0
//
//   Unless required by applicable law or agreed to in writing, software
//   distributed under the License is distributed on an "AS IS" BASIS,
//   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//   See the License for the specific language governing permissions and
//   limitations under the License.
// ***************************************************************************

// Package accountservice persists the single active Microsoft/Minecraft
// account and keeps its token fresh. The device-code/Xbox Live/XSTS
// exchange that produces a first access token lives in whatever
// ports.AuthPort adapter does the network calls; this package only ever
// sees the tokens it's handed.
package accountservice

import (
	"context"
	"time"

	"minesync/internal/core/domain"
	"minesync/internal/core/ports"
)

// refreshSkew refreshes a token slightly before it actually expires, so a
// long-running request doesn't start with a token that dies mid-flight.
const refreshSkew = 2 * time.Minute

// assumedTokenLifetime backstops ExpiresAt after a refresh. ports.AuthPort
// doesn't surface the provider's expires_in (it only returns the token
// strings), so this approximates Microsoft's Minecraft token lifetime
// rather than trusting an unbounded token indefinitely.
const assumedTokenLifetime = 1 * time.Hour

type Service struct {
	store ports.CatalogStore
	auth  ports.AuthPort
}

func New(store ports.CatalogStore, auth ports.AuthPort) *Service {
	return &Service{store: store, auth: auth}
}

// Login stores a freshly obtained account as the sole active account,
// deactivating whatever was active before.
func (s *Service) Login(ctx context.Context, acct domain.Account) (domain.Account, error) {
	if err := s.store.DeactivateAllAccounts(ctx); err != nil {
		return domain.Account{}, err
	}
	acct.IsActive = true
	if err := s.store.UpsertAccount(ctx, acct); err != nil {
		return domain.Account{}, err
	}
	return acct, nil
}

// Logout deactivates every stored account. It does not delete them, so a
// later Login with the same UUID resumes the same row.
func (s *Service) Logout(ctx context.Context) error {
	return s.store.DeactivateAllAccounts(ctx)
}

// CurrentAccount returns the active account, refreshing its access token
// first if it's at or past refreshSkew from expiry.
func (s *Service) CurrentAccount(ctx context.Context) (domain.Account, error) {
	acct, err := s.store.GetActiveAccount(ctx)
	if err != nil {
		return domain.Account{}, err
	}

	if time.Until(acct.ExpiresAt) > refreshSkew {
		return acct, nil
	}

	return s.refresh(ctx, acct)
}

func (s *Service) refresh(ctx context.Context, acct domain.Account) (domain.Account, error) {
	accessToken, refreshToken, username, externalUUID, err := s.auth.Refresh(ctx, acct.RefreshToken)
	if err != nil {
		return domain.Account{}, err
	}

	acct.AccessToken = accessToken
	acct.RefreshToken = refreshToken
	acct.Username = username
	if externalUUID != "" {
		acct.UUID = externalUUID
	}
	acct.ExpiresAt = time.Now().Add(assumedTokenLifetime)

	if err := s.store.UpsertAccount(ctx, acct); err != nil {
		return domain.Account{}, err
	}
	return acct, nil
}
