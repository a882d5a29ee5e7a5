package main

import (
	"github.com/jrsteele09/go-services-client/entities"
	"github.com/jrsteele09/go-services-client/servicestub"
)

// seedStore fills a store with a demo account and some content to browse.
func seedStore() (*servicestub.Store, error) {
	store := servicestub.NewStore()
	uid, err := store.AddUser("demo", "demo", "demo@localhost")
	if err != nil {
		return nil, err
	}

	welcome := store.SaveNode(&entities.Node{
		Type:    "story",
		Title:   "Welcome",
		Body:    "This site is served by the services dev server.",
		UID:     entities.Int(uid),
		Name:    "demo",
		Status:  true,
		Promote: true,
	})
	draft := store.SaveNode(&entities.Node{
		Type:  "story",
		Title: "Unpublished draft",
		Body:  "Only logged in users can read this.",
		UID:   entities.Int(uid),
		Name:  "demo",
	})
	for _, subject := range []string{"First!", "Nice post"} {
		if _, err := store.SaveComment(&entities.Comment{
			NID:     entities.Int(welcome),
			UID:     entities.Int(uid),
			Name:    "demo",
			Subject: subject,
			Comment: subject,
		}); err != nil {
			return nil, err
		}
	}

	store.AddTerm(entities.TaxonomyTerm{TID: 1, VID: 1, Name: "News"})
	store.AddTerm(entities.TaxonomyTerm{TID: 2, VID: 1, Name: "Events", Weight: 1})
	store.AddTerm(entities.TaxonomyTerm{TID: 3, VID: 2, Name: "golang"})
	store.AddNodeView("frontpage", welcome, draft)
	store.AddTermView("tags", 3)
	return store, nil
}
