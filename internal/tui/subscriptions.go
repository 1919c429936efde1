package tui

import (
	"github.com/mmcdole/libraryhub/internal/event"
	"github.com/mmcdole/libraryhub/internal/library"
)

// pageSubscriptions registers the bus handlers a page holds while shown.
// The caller unsubscribes the group when the operator leaves the page.
//
// The store that issued a write has already updated itself and the service
// refreshes dependent stores, so page handlers only load what is missing.
func pageSubscriptions(svc *library.Service, page Page) event.Group {
	bus := svc.Bus()
	switch page {
	case PageBooks:
		return event.Group{
			bus.Subscribe(event.BooksChanged, svc.Books.FetchAll),
			bus.Subscribe(event.AuthorsChanged, svc.Authors.FetchAll),
		}
	default:
		return nil
	}
}
