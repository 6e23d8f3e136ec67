// Command adpn is the content-ingest toolset for the preservation network:
// it extracts JSON packets from tracker threads and text pipes, resolves
// operation parameters across switches, session stash, properties, and
// secrets, and loads finalized packets into the titles database.
package main
