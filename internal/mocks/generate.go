// Package mocks provides gomock implementations of the ports used by the session services.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	backend := mocks.NewMockAuthBackend(ctrl)
//	backend.EXPECT().Profile(gomock.Any()).Return(user, nil)
package mocks

// AuthBackend: Login, Register, FederatedLogin, FederatedRegister, Profile, SetRole
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=auth_backend_mock.go github.com/pastibot/companion/internal/ports AuthBackend

// AccountBackend: ForgotPassword, ResetPassword, UpdatePatientProfile, LinkCaregiver
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=account_backend_mock.go github.com/pastibot/companion/internal/ports AccountBackend

// DispenserBackend: Dispense, DispenseMine, History
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=dispenser_backend_mock.go github.com/pastibot/companion/internal/ports DispenserBackend

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=token_store_mock.go github.com/pastibot/companion/internal/ports TokenStore
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=native_bridge_mock.go github.com/pastibot/companion/internal/ports NativeBridge
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=navigator_mock.go github.com/pastibot/companion/internal/ports Navigator
