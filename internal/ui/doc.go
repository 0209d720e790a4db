// Package ui implements an interactive terminal importer using bubbletea's Elm architecture.
//
// The TUI walks through one import:
//  1. [RepositoryListView] : Browse repositories advertised by the enabled sources
//  2. [ConfirmView] : Review the location and toggle import options
//  3. [ImportView] : Follow stage and book progress with a spinner and progress bar
//  4. [ResultView] : Show counts, warnings and errors
//
// When started with a location the list is skipped and the model opens on the confirm view.
//
// The [Model] implements the standard Init/Update/View pattern, receiving messages via the [Msg] union type.
// Progress updates flow through a channel from the import engine; esc or ctrl+c during an import cancels it.
package ui
