package keystore

import (
	"bytes"
	"context"
	"crypto/rand"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/semmidev/custos/internal/crypto"
	"github.com/semmidev/custos/internal/domain"
	"github.com/semmidev/custos/internal/store"
	"github.com/semmidev/custos/internal/store/memory"
)

func TestManager(t *testing.T) {
	Convey("Given a keystore manager", t, func() {
		ctx := context.Background()
		st := memory.New()
		crypter := crypto.NewChaCha()

		rootKey := make([]byte, 32)
		_, err := rand.Read(rootKey)
		So(err, ShouldBeNil)

		manager, err := New(st, crypter, rootKey)
		So(err, ShouldBeNil)

		Convey("New with a short root key", func() {
			_, err := New(st, crypter, []byte("short"))

			Convey("It should refuse to construct", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "root key must be 32 bytes")
			})
		})

		Convey("Create", func() {
			profile, err := manager.Create(ctx, "prod-backups", "rotated quarterly")

			Convey("It should persist only the wrapped form", func() {
				So(err, ShouldBeNil)
				So(profile.ID, ShouldNotBeEmpty)
				So(profile.Name, ShouldEqual, "prod-backups")
				So(len(profile.WrappedKey), ShouldBeGreaterThan, domain.MasterKeySize)
			})

			Convey("MasterKey should unwrap to exactly 32 bytes", func() {
				So(err, ShouldBeNil)
				key, err := manager.MasterKey(ctx, profile.ID)
				So(err, ShouldBeNil)
				So(len(key), ShouldEqual, domain.MasterKeySize)

				Convey("And the unwrapped key differs from the wrapped record", func() {
					So(bytes.Contains(profile.WrappedKey, key), ShouldBeFalse)
				})
			})
		})

		Convey("MasterKey on an unknown profile", func() {
			_, err := manager.MasterKey(ctx, "missing")

			Convey("It should return not-found", func() {
				So(err, ShouldEqual, store.ErrNotFound)
			})
		})

		Convey("MasterKey on a profile that unwraps to the wrong length", func() {
			// Wrap 16 bytes directly, bypassing Create, to simulate a
			// corrupted record.
			wrapped, err := crypter.Seal(rootKey, make([]byte, 16))
			So(err, ShouldBeNil)
			So(st.CreateProfile(ctx, &domain.EncryptionProfile{
				ID: "corrupt", Name: "corrupt", WrappedKey: wrapped,
			}), ShouldBeNil)

			_, err = manager.MasterKey(ctx, "corrupt")

			Convey("It should fail with the integrity error", func() {
				So(err, ShouldEqual, ErrKeyIntegrity)
			})
		})

		Convey("MasterKey after the root key changed", func() {
			profile, err := manager.Create(ctx, "old-root", "")
			So(err, ShouldBeNil)

			otherRoot := make([]byte, 32)
			_, err = rand.Read(otherRoot)
			So(err, ShouldBeNil)
			other, err := New(st, crypter, otherRoot)
			So(err, ShouldBeNil)

			_, err = other.MasterKey(ctx, profile.ID)

			Convey("It should fail to unwrap", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "failed to unwrap master key")
			})
		})

		Convey("List and Delete", func() {
			profile, err := manager.Create(ctx, "ephemeral", "")
			So(err, ShouldBeNil)

			list, err := manager.List(ctx)
			So(err, ShouldBeNil)
			So(len(list), ShouldEqual, 1)

			So(manager.Delete(ctx, profile.ID), ShouldBeNil)

			Convey("The key is gone for good", func() {
				_, err := manager.MasterKey(ctx, profile.ID)
				So(err, ShouldEqual, store.ErrNotFound)
			})
		})
	})
}
