package prompt

// Canonical section headers emitted by the backend orchestrator.
const (
	SectionSystem         = "SYSTEM"
	SectionIdentity       = "IDENTITY"
	SectionSessionContext = "PREVIOUS SESSION CONTEXT"
	SectionLongTermMemory = "LONG-TERM MEMORY (RAG)"
	SectionDocuments      = "RETRIEVED DOCUMENTS"
	SectionHistory        = "RECENT HISTORY"
	SectionCurrentMessage = "CURRENT MESSAGE"
)

// Skeleton builds the locally-generated placeholder document shown while
// the orchestrator's build request is in flight. It keeps the UI
// responsive; the real build result strictly overwrites it.
func Skeleton(input string) string {
	sections := []Section{
		{Header: SectionSystem, Content: "(loading system instruction...)"},
		{Header: SectionIdentity, Content: "(loading identity...)"},
		{Header: SectionSessionContext, Content: "(loading session summary...)"},
		{Header: SectionLongTermMemory, Content: "(retrieving memories...)"},
		{Header: SectionDocuments, Content: "(retrieving documents...)"},
		{Header: SectionHistory, Content: "(loading recent history...)"},
		{Header: SectionCurrentMessage, Content: "User: " + input + "\n\nAssistant:"},
	}
	return Reconstruct(sections)
}
