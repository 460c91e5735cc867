package session_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/cloudchat/pkg/chatapi"
	"github.com/papercomputeco/cloudchat/pkg/session"
)

var _ = Describe("Key", func() {
	It("treats the zero key and an empty id as unsaved", func() {
		Expect(session.Key{}).To(Equal(session.Unsaved))
		Expect(session.Existing("")).To(Equal(session.Unsaved))
		Expect(session.Unsaved.IsUnsaved()).To(BeTrue())
	})

	It("carries the server id of existing sessions", func() {
		k := session.Existing("s1")
		id, ok := k.ID()
		Expect(ok).To(BeTrue())
		Expect(id).To(Equal("s1"))
		Expect(k).NotTo(Equal(session.Unsaved))
		Expect(k).To(Equal(session.Existing("s1")))
	})
})

var _ = Describe("Store", func() {
	var (
		store *session.Store
		s1    = session.Existing("s1")
		user  = chatapi.Message{Role: chatapi.RoleUser, Content: "hi"}
	)

	BeforeEach(func() {
		store = session.NewStore()
	})

	It("creates missing entries in WithEntry", func() {
		store.WithEntry(s1, func(st session.State) session.State {
			st.Messages = append(st.Messages, user)
			return st
		})

		st, ok := store.Get(s1)
		Expect(ok).To(BeTrue())
		Expect(st.Messages).To(Equal([]chatapi.Message{user}))
	})

	It("does not create entries in Update", func() {
		ran := store.Update(s1, func(st session.State) session.State {
			st.IsStreaming = true
			return st
		})
		Expect(ran).To(BeFalse())
		Expect(store.Has(s1)).To(BeFalse())
	})

	It("hands out copies", func() {
		store.Put(s1, session.State{Messages: []chatapi.Message{user}})

		st, _ := store.Get(s1)
		st.Messages[0].Content = "changed"

		again, _ := store.Get(s1)
		Expect(again.Messages[0].Content).To(Equal("hi"))
	})

	It("migrates an entry and removes the old key", func() {
		store.Put(session.Unsaved, session.State{Messages: []chatapi.Message{user}, IsStreaming: true})

		Expect(store.Migrate(session.Unsaved, s1)).To(BeTrue())
		Expect(store.Has(session.Unsaved)).To(BeFalse())

		st, ok := store.Get(s1)
		Expect(ok).To(BeTrue())
		Expect(st.IsStreaming).To(BeTrue())
		Expect(st.Messages).To(Equal([]chatapi.Message{user}))
	})

	It("reports when there is nothing to migrate", func() {
		Expect(store.Migrate(session.Unsaved, s1)).To(BeFalse())
		Expect(store.Len()).To(BeZero())
	})

	It("deletes and resets", func() {
		store.Put(s1, session.State{})
		store.Put(session.Unsaved, session.State{})

		store.Delete(s1)
		Expect(store.Has(s1)).To(BeFalse())
		Expect(store.Len()).To(Equal(1))

		store.Reset()
		Expect(store.Len()).To(BeZero())
	})
})
