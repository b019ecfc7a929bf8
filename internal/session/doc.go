/*
Package session tracks the active media provider and the viewer's position
in it.

A Session is created once at startup and closed at shutdown. Swapping in a
new provider lists all of its files and folders first; only when that
succeeds does the session switch over and close the previous provider. A
failed swap leaves the session exactly as it was.

	s := session.New()
	defer s.Close()

	if err := s.Open(ctx, "/library/book.cbz", provider.Options{}); err != nil {
	    return err
	}
	next, err := s.Advance(ctx, false, false, 1)

Listeners registered with OnChange run after every provider swap or entry
change, outside the session lock.
*/
package session
