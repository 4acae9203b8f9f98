package api

import "net/url"

const (
	EndpointLogin        = "/auth/token"
	EndpointRegister     = "/auth/register"
	EndpointUserInfo     = "/users/info"
	EndpointMyUserInfo   = "/users/info/me"
	EndpointUserSearch   = "/users/search"
	EndpointTasks        = "/tasks/"
	EndpointMyTasks      = "/tasks/me/"
	EndpointChats        = "/chats/"
	EndpointContracts    = "/contracts/"
	EndpointMyContracts  = "/contracts/me"
	EndpointFeedback     = "/feedback/"
	EndpointFeedbackMine = "/feedback/me"
)

func TaskDetail(id string) string { return EndpointTasks + url.PathEscape(id) }
func TaskProposals(id string) string { return EndpointTasks + url.PathEscape(id) + "/proposals" }
func ChatMessages(id string) string { return "/messages/by-chat/" + url.PathEscape(id) }
func SendChatMessage(id string) string { return "/messages/by-chat/" + url.PathEscape(id) + "/send" }
func MarkChatViewed(id string) string { return "/chats/" + url.PathEscape(id) + "/mark-viewed" }
func ContractDetail(id string) string { return "/contracts/" + url.PathEscape(id) }
func ContractAccept(id string) string { return "/contracts/" + url.PathEscape(id) + "/accept" }
func FeedbackForUser(id string) string { return "/feedback/user/" + url.PathEscape(id) }
