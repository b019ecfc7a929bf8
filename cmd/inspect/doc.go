// Command inspect prints the folder tree of an archive, PDF or directory the
// way the viewer sees it: folders in navigation order with their image
// counts and cover pages. With -verify it reads every entry, which is how a
// wrong archive password shows up.
//
// An encrypted archive prompts for its password on the terminal unless
// -password is given.
package main
