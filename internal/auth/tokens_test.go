package auth_test

import (
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/venue-management/internal"
	"github.com/frahmantamala/venue-management/internal/auth"
)

var _ = Describe("JWTTokenGenerator", func() {
	var gen *auth.JWTTokenGenerator

	BeforeEach(func() {
		gen = auth.NewJWTTokenGenerator("access-secret-access-secret-0000", "refresh-secret-refresh-secret-00", time.Minute, time.Hour)
	})

	It("round-trips access tokens", func() {
		tok, err := gen.GenerateAccessToken("user-1", "a@example.com")
		Expect(err).NotTo(HaveOccurred())

		claims, err := gen.ValidateAccessToken(tok)
		Expect(err).NotTo(HaveOccurred())
		Expect(claims.UserID).To(Equal("user-1"))
		Expect(claims.Email).To(Equal("a@example.com"))
		Expect(claims.TokenType).To(Equal(auth.TokenTypeAccess))
	})

	It("does not accept one token type in place of the other", func() {
		access, _ := gen.GenerateAccessToken("user-1", "a@example.com")
		refresh, _ := gen.GenerateRefreshToken("user-1", "a@example.com")

		_, err := gen.ValidateRefreshToken(access)
		Expect(err).To(HaveOccurred())
		_, err = gen.ValidateAccessToken(refresh)
		Expect(err).To(HaveOccurred())
	})

	It("reports expiry distinctly", func() {
		expired := auth.NewJWTTokenGenerator("access-secret-access-secret-0000", "refresh-secret-refresh-secret-00", -time.Minute, time.Hour)
		expired.AccessTokenTTL = -time.Minute
		tok, err := expired.GenerateAccessToken("user-1", "a@example.com")
		Expect(err).NotTo(HaveOccurred())

		_, err = gen.ValidateAccessToken(tok)
		Expect(errors.Is(err, internal.ErrAuthTokenExpired)).To(BeTrue())
	})

	It("rejects tokens signed with another secret", func() {
		other := auth.NewJWTTokenGenerator("another-secret-another-secret-00", "refresh-secret-refresh-secret-00", time.Minute, time.Hour)
		tok, _ := other.GenerateAccessToken("user-1", "a@example.com")

		_, err := gen.ValidateAccessToken(tok)
		Expect(errors.Is(err, internal.ErrInvalidAuthToken)).To(BeTrue())
	})
})

var _ = Describe("BcryptHasher", func() {
	It("verifies the original password only", func() {
		h := auth.NewBcryptHasher(4)
		hash, err := h.Hash("password123")
		Expect(err).NotTo(HaveOccurred())
		Expect(hash).NotTo(Equal("password123"))

		Expect(h.Verify(hash, "password123")).To(Succeed())
		Expect(h.Verify(hash, "password124")).NotTo(Succeed())
	})
})
