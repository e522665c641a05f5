package stores

import (
	"github.com/trezcool/educloud/core/school"
)

type (
	StudentStore      = CollectionStore[school.Student]
	AnnouncementStore = CollectionStore[school.Announcement]
)

func NewStudentStore(svc CRUD[school.Student]) *StudentStore {
	return NewCollectionStore[school.Student](svc)
}

func NewAnnouncementStore(svc CRUD[school.Announcement]) *AnnouncementStore {
	return NewCollectionStore[school.Announcement](svc)
}
